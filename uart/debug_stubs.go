//go:build !uartdebug

package uart

type Stats struct{}

func (m *Module) DebugReset()       {}
func (m *Module) DebugStats() Stats { return Stats{} }

func (s *state) dbgISR(Direction, int) {}
func (s *state) dbgDrop()              {}
func (s *state) dbgFaults(uint16)      {}
func (s *state) dbgAddr(bool)          {}
func (s *state) dbgDMABlock()          {}
