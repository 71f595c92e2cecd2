package cart

import "github.com/cedinu/flexicart-control/protocol"

// Logical command names.
const (
	CmdStatus    = "status"
	CmdPosition  = "position"
	CmdInventory = "inventory"
	CmdError     = "error"
	CmdDummy     = "dummy"
	CmdSystemID  = "system_id"

	CmdElevatorMove   = "elevator_move"
	CmdElevatorHome   = "elevator_home"
	CmdCarouselRotate = "carousel_rotate"
	CmdLoad           = "load"
	CmdUnload         = "unload"
	CmdEject          = "eject"
	CmdInitialize     = "initialize"
	CmdCalibrate      = "calibrate"

	CmdTallyOn  = "tally_on"
	CmdTallyOff = "tally_off"
)

// Command codes.
const (
	codeSense  byte = 0x61
	codeDummy  byte = 0x50
	codeMotion byte = 0x41
	codeSystem byte = 0x1D
	codeTally  byte = 0x71
)

// Catalog is the cart-robot command table. The status query polled for Macro
// completion is CmdStatus; scans probe with CmdDummy.
var Catalog = protocol.NewCatalog(CmdStatus, CmdDummy,
	// Queries.
	protocol.CommandSpec{Name: CmdStatus, Command: codeSense, Control: 0x10, Data: 0x80, Category: protocol.Immediate},
	protocol.CommandSpec{Name: CmdPosition, Command: codeSense, Control: 0x20, Data: 0x80, Category: protocol.Immediate},
	protocol.CommandSpec{Name: CmdInventory, Command: codeSense, Control: 0x30, Data: 0x80, Category: protocol.Immediate},
	protocol.CommandSpec{Name: CmdError, Command: codeSense, Control: 0x40, Data: 0x80, Category: protocol.Immediate},
	protocol.CommandSpec{Name: CmdSystemID, Command: codeSense, Control: 0x50, Data: 0x80, Category: protocol.Immediate},
	protocol.CommandSpec{Name: CmdDummy, Command: codeDummy, Control: 0x00, Category: protocol.Immediate},

	// Motion. Data carries the target bin or elevator position where relevant.
	protocol.CommandSpec{Name: CmdElevatorMove, Command: codeMotion, Control: 0x01, Category: protocol.Macro},
	protocol.CommandSpec{Name: CmdElevatorHome, Command: codeMotion, Control: 0x02, Category: protocol.Macro},
	protocol.CommandSpec{Name: CmdCarouselRotate, Command: codeMotion, Control: 0x03, Category: protocol.Macro},
	protocol.CommandSpec{Name: CmdLoad, Command: codeMotion, Control: 0x10, Category: protocol.Macro},
	protocol.CommandSpec{Name: CmdUnload, Command: codeMotion, Control: 0x11, Category: protocol.Macro},
	protocol.CommandSpec{Name: CmdEject, Command: codeMotion, Control: 0x12, Category: protocol.Macro},
	protocol.CommandSpec{Name: CmdInitialize, Command: codeSystem, Control: 0x00, Category: protocol.Macro},
	protocol.CommandSpec{Name: CmdCalibrate, Command: codeSystem, Control: 0x01, Category: protocol.Macro},

	// On-air tally.
	protocol.CommandSpec{Name: CmdTallyOn, Command: codeTally, Control: 0x01, Category: protocol.Control},
	protocol.CommandSpec{Name: CmdTallyOff, Command: codeTally, Control: 0x00, Category: protocol.Control},
)
