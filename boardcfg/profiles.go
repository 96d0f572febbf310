package boardcfg

// -----------------------------------------------------------------------------
// Embedded board profiles
//
// Key: profile name as given on the command line
// Val: raw JSON for that board
// -----------------------------------------------------------------------------

const profLoopbackHW = `{
  "uart": 1,
  "baud": "115200",
  "framing": "8n1",
  "loopback": true,
  "tick_hz": 2000
}`

const profLoopbackSW = `{
  "uart": 1,
  "baud": "115200",
  "framing": "8n1",
  "loopback": true,
  "tx": {"mode": "sw", "size": 16},
  "rx": {"mode": "sw", "size": 64},
  "tick_hz": 2000
}`

const profLoopbackDMA = `{
  "uart": 1,
  "baud": "115200",
  "framing": "8n1",
  "loopback": true,
  "tx": {"mode": "dma", "dma": {"channel": 0, "bytes": 32}},
  "rx": {"mode": "dma", "dma": {"channel": 1, "bytes": 16, "ping_pong": true}},
  "tick_hz": 2000
}`

const profLoopbackHybrid = `{
  "uart": 1,
  "baud": "230400",
  "framing": "8n1",
  "loopback": true,
  "tx": {"mode": "hybrid", "size": 32, "dma": {"channel": 0, "bytes": 16}},
  "rx": {"mode": "hybrid", "size": 64, "dma": {"channel": 1, "bytes": 8, "ping_pong": true}},
  "tick_hz": 2000
}`

const profRS4859Bit = `{
  "uart": 3,
  "baud": "9600",
  "framing": "9n1",
  "addressing": "mask",
  "local_addrs": [17, 34],
  "flow": "rts",
  "rts": "simplex",
  "tx": {"mode": "sw", "size": 16},
  "rx": {"mode": "sw", "size": 16},
  "tick_hz": 2000
}`

const profGPS = `{
  "uart": 2,
  "baud": "9600",
  "framing": "8n1",
  "rx": {"mode": "sw", "size": 128},
  "tick_hz": 2000
}`

var embeddedProfiles = map[string][]byte{
	"loopback-hw":     []byte(profLoopbackHW),
	"loopback-sw":     []byte(profLoopbackSW),
	"loopback-dma":    []byte(profLoopbackDMA),
	"loopback-hybrid": []byte(profLoopbackHybrid),
	"rs485-9bit":      []byte(profRS4859Bit),
	"gps":             []byte(profGPS),
}
