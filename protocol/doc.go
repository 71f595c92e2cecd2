// Package protocol holds the data model shared by the cart-robot and VTR
// command protocols: command specifications and their execution categories,
// device addressing, response frames and the response classifier.
//
// # Response framing
//
// Neither wire protocol carries a length prefix, terminator or sequence
// number in its responses. A response is whatever arrives after a command
// until the line goes quiet, so a ResponseFrame is a byte slice together with
// how it was classified and how long the wait took.
//
// # Classification
//
// The first byte of a response decides its class. The acknowledgement,
// rejection and busy byte values differ between hardware revisions, so they
// are supplied through a ResponseProfile rather than compiled in:
//
//   - DefaultResponseProfile        ACK 0x04, NACK 0x05, BUSY 0x06
//   - EarlyFirmwareResponseProfile  ACK 0x10, NACK 0x05, BUSY 0x06
//
// Any other leading byte marks a status/data payload.
package protocol
