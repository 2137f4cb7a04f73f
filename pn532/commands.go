package pn532

// PN532 command codes used by the bridge's target/card-emulation command
// vocabulary (spec §4.C). This generalizes the teacher's initiator-mode
// command set (InListPassiveTarget, InDataExchange, ...) to target-mode
// commands. cmdTgGetData is defined here but no Device method issues it.
const (
	cmdGetFirmwareVersion = 0x02
	cmdSamConfiguration   = 0x14
	cmdTgInitAsTarget     = 0x8C
	cmdTgGetData          = 0x86
)

// SAM configuration arguments: normal mode (0x01), timeout byte 0x14
// (20 x 50 ms, only used in virtual-card mode), IRQ pin enabled (0x01).
var samConfigurationArgs = []byte{0x01, 0x14, 0x01}

// initAsTargetMode leaves the PassiveOnly, DEPOnly and PICCOnly bits clear,
// so the controller accepts any activation mode, matching the fixed target
// descriptor spec §4.C requires.
const initAsTargetMode = 0x00
