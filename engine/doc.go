// Package engine drives broadcast devices over their serial command protocols.
//
// An Executor owns one transport endpoint. For every command it discards
// stale input, writes the encoded packet and accumulates the response under a
// ReadPolicy: the response ends after an inactivity gap once bytes have
// arrived, and the timeout caps the whole wait. The response is then
// classified as ACK, NACK, BUSY, data or empty.
//
// Commands complete according to their category:
//
//   - Immediate and Control commands return the classified frame.
//   - Macro commands are only acknowledged. After the ACK the executor polls
//     the catalog's status query, waiting PollInterval before each query,
//     until a query returns data or MaxPollAttempts queries have been sent.
//     A NACK fails with ErrCommandRejected and is never retried.
//
// Engine maps endpoints to executors, opens transports lazily and offers
// ExecuteCommand, ScanDevices and DecodeTimecode.
//
// Example:
//
//	cfg, err := engine.NewConfig(engine.WithResponseProfile(protocol.EarlyFirmwareResponseProfile))
//	if err != nil {
//		return err
//	}
//	eng := engine.New(cfg, transport.SerialOpener(transport.DefaultSerialConfig, nil))
//	defer eng.Close()
//
//	addr := protocol.DeviceAddress{Endpoint: "/dev/ttyUSB0", Unit: 0x01}
//	frame, err := eng.ExecuteCommand(ctx, cart.CmdStatus, addr, 0)
package engine
