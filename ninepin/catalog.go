package ninepin

import "github.com/cedinu/flexicart-control/protocol"

// Logical command names.
const (
	CmdDeviceType    = "device_type"
	CmdStatusSense   = "status_sense"
	CmdTimecodeSense = "timecode_sense"

	CmdStop        = "stop"
	CmdPlay        = "play"
	CmdRecord      = "record"
	CmdPause       = "pause"
	CmdStandbyOn   = "standby_on"
	CmdStandbyOff  = "standby_off"
	CmdFastForward = "fast_forward"
	CmdRewind      = "rewind"

	CmdEject = "eject"
)

// Catalog is the VTR command table. Eject is the only Macro command: the
// transport reports completion through status sense.
var Catalog = protocol.NewCatalog(CmdStatusSense, CmdDeviceType,
	protocol.CommandSpec{Name: CmdDeviceType, Command: 0x00, Control: 0x11, Category: protocol.Immediate},
	protocol.CommandSpec{Name: CmdStatusSense, Command: 0x61, Control: 0x20, Data: 0x0A, Category: protocol.Immediate},
	protocol.CommandSpec{Name: CmdTimecodeSense, Command: 0x61, Control: 0x0C, Data: 0x03, Category: protocol.Immediate},

	protocol.CommandSpec{Name: CmdStop, Command: 0x20, Control: 0x00, Category: protocol.Control},
	protocol.CommandSpec{Name: CmdPlay, Command: 0x20, Control: 0x01, Category: protocol.Control},
	protocol.CommandSpec{Name: CmdRecord, Command: 0x20, Control: 0x02, Category: protocol.Control},
	protocol.CommandSpec{Name: CmdStandbyOff, Command: 0x20, Control: 0x04, Category: protocol.Control},
	protocol.CommandSpec{Name: CmdStandbyOn, Command: 0x20, Control: 0x05, Category: protocol.Control},
	protocol.CommandSpec{Name: CmdFastForward, Command: 0x20, Control: 0x10, Category: protocol.Control},
	protocol.CommandSpec{Name: CmdRewind, Command: 0x20, Control: 0x20, Category: protocol.Control},
	// Jog forward at speed zero holds the picture.
	protocol.CommandSpec{Name: CmdPause, Command: 0x21, Control: 0x11, Data: 0x00, Category: protocol.Control},

	protocol.CommandSpec{Name: CmdEject, Command: 0x20, Control: 0x0F, Category: protocol.Macro},
)
