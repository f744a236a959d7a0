package engine

import (
	"fmt"

	"github.com/lixenwraith/cadence/service"
	"github.com/lixenwraith/cadence/settings"
)

// MaxThreads is the thread count of the fully parallel plan:
// one per schedulable subsystem plus the orchestrator
const MaxThreads = 4

// Slot identifies one of the schedulable subsystems
type Slot int

const (
	SlotInput Slot = iota
	SlotGraphics
	SlotAudio
	slotCount
)

// Slots lists every schedulable subsystem
var Slots = [slotCount]Slot{SlotInput, SlotGraphics, SlotAudio}

// cooperativeOrder keeps input fresh before audio and graphics consume it
var cooperativeOrder = [slotCount]Slot{SlotInput, SlotAudio, SlotGraphics}

// String returns the registry tag of the slot
func (s Slot) String() string {
	switch s {
	case SlotInput:
		return "input"
	case SlotGraphics:
		return "graphics"
	case SlotAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Plan assigns a mode to every slot for one thread count
type Plan struct {
	Threading settings.Threading
	Threads   int
	modes     [slotCount]service.Mode
}

// SelectThreadCount maps the threading setting and available units to a thread count
func SelectThreadCount(t settings.Threading, units int) int {
	switch t {
	case settings.ThreadingFull:
		return MaxThreads
	case settings.ThreadingSingle:
		return 1
	default:
		return min(MaxThreads, max(1, units))
	}
}

// PlanFor builds the plan for a thread count, clamped to [1, MaxThreads]
func PlanFor(threads int) Plan {
	threads = min(MaxThreads, max(1, threads))
	p := Plan{Threads: threads}

	switch threads {
	case 4:
		p.modes = [slotCount]service.Mode{
			SlotInput:    service.ModeOwnThread,
			SlotGraphics: service.ModeOwnThread,
			SlotAudio:    service.ModeOwnThread,
		}
	case 3:
		p.modes = [slotCount]service.Mode{
			SlotInput:    service.ModeCooperative,
			SlotGraphics: service.ModeOwnThread,
			SlotAudio:    service.ModeOwnThread,
		}
	case 2:
		p.modes = [slotCount]service.Mode{
			SlotInput:    service.ModeCooperative,
			SlotGraphics: service.ModeOwnThread,
			SlotAudio:    service.ModeCooperative,
		}
	default:
		p.modes = [slotCount]service.Mode{
			SlotInput:    service.ModeCooperative,
			SlotGraphics: service.ModeCooperative,
			SlotAudio:    service.ModeCooperative,
		}
	}
	return p
}

// Mode returns the mode assigned to slot
func (p Plan) Mode(s Slot) service.Mode {
	return p.modes[s]
}

// Cooperative returns the slots the main loop drives, in execution order
func (p Plan) Cooperative() []Slot {
	slots := make([]Slot, 0, slotCount)
	for _, s := range cooperativeOrder {
		if p.modes[s] == service.ModeCooperative {
			slots = append(slots, s)
		}
	}
	return slots
}

// String formats the plan for logs and the HUD, e.g. "OPTIMIZE/2"
func (p Plan) String() string {
	if p.Threading == "" {
		return fmt.Sprintf("%d", p.Threads)
	}
	return fmt.Sprintf("%s/%d", p.Threading, p.Threads)
}
