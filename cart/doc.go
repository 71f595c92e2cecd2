// Package cart implements the command packet of the video-cart robot protocol
// and its command catalog.
//
// # Packet
//
// Every command is a fixed 9-byte frame:
//
//	[STX 0x02][count 0x06][UA1 0x01][UA2][block type][command][control][data][checksum]
//
// The checksum covers bytes 1..7 (count through data). Units in the field
// disagree on the algorithm, so it is selected per device profile:
//
//   - ChecksumSum: two's complement of the byte sum, (0x100 - Σ mod 0x100) mod 0x100
//   - ChecksumXOR: XOR of the covered bytes
//
// Responses from the robot are not checksummed; VerifyChecksum and ParsePacket
// apply only to frames presented as command packets.
//
// # Commands
//
// Catalog lists the logical operations of the robot. Queries are Immediate,
// motion (elevator, carousel, load, unload, eject, initialize, calibrate) is
// Macro and completes asynchronously, and tally switching is Control.
package cart
