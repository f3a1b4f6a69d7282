package job

// Phase is a step of the job lifecycle. Phases only move forward.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseSetup
	PhasePreHooks
	PhaseExecute
	PhasePostHooks
	PhaseRender
	PhaseCleanup
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "NEW"
	case PhaseSetup:
		return "SETUP"
	case PhasePreHooks:
		return "PRE_HOOKS"
	case PhaseExecute:
		return "EXECUTE"
	case PhasePostHooks:
		return "POST_HOOKS"
	case PhaseRender:
		return "RENDER"
	case PhaseCleanup:
		return "CLEANUP"
	default:
		return "UNKNOWN"
	}
}
