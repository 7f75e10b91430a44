package orchestrator

// State enumerates the deployment pipeline's states, including terminal
// aborts, so transitions and their preconditions are testable in isolation.
type State int

const (
	StateInitial State = iota
	StateValidate
	StateProbe    // single mode: probe the one target
	StateProbeAll // multi mode: probe every target before mutating anything
	StateDeployAuth
	StateDeployAPI
	StateDeployWeb
	StateDeploySingle
	StateReconcileDNS
	StateDone

	AbortMissingArgs
	AbortUnreachable
	AbortDeployFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateValidate:
		return "validate"
	case StateProbe:
		return "probe"
	case StateProbeAll:
		return "probe-all"
	case StateDeployAuth:
		return "deploy-auth"
	case StateDeployAPI:
		return "deploy-api"
	case StateDeployWeb:
		return "deploy-web"
	case StateDeploySingle:
		return "deploy-single"
	case StateReconcileDNS:
		return "reconcile-dns"
	case StateDone:
		return "done"
	case AbortMissingArgs:
		return "abort-missing-args"
	case AbortUnreachable:
		return "abort-unreachable"
	case AbortDeployFailed:
		return "abort-deploy-failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the pipeline.
func (s State) Terminal() bool {
	switch s {
	case StateDone, AbortMissingArgs, AbortUnreachable, AbortDeployFailed:
		return true
	default:
		return false
	}
}
