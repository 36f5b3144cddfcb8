// Package lifecycle defines the submission state machine: the enumerated
// lifecycle states, the four pipeline stages, and the allowed-transitions
// table that guards every status change.
package lifecycle

// Stage identifies one of the four pipeline stages a submission passes
// through on its way from ingress to delivery.
type Stage string

// The four pipeline stages, in processing order.
const (
	StageRaw        Stage = "raw"
	StageNormalized Stage = "normalized"
	StageLLMOutput  Stage = "llm-output"
	StageExports    Stage = "exports"
)

// Stages lists every known stage, in processing order.
var Stages = []Stage{StageRaw, StageNormalized, StageLLMOutput, StageExports}

// State is one of the enumerated submission lifecycle states.
type State string

// The full set of lifecycle states (spec.md §4.1).
const (
	StateTelegramUpdateReceived  State = "telegram_update_received"
	StateTelegramIngestInProg    State = "telegram_ingest_in_progress"
	StateUploaded                State = "uploaded"
	StateNormalizationInProgress State = "normalization_in_progress"
	StateNormalized              State = "normalized"
	StateEvaluationInProgress    State = "evaluation_in_progress"
	StateEvaluated               State = "evaluated"
	StateDeliveryInProgress      State = "delivery_in_progress"
	StateDelivered               State = "delivered"
	StateFailedTelegramIngest    State = "failed_telegram_ingest"
	StateFailedNormalization     State = "failed_normalization"
	StateFailedEvaluation        State = "failed_evaluation"
	StateFailedDelivery          State = "failed_delivery"
	StateDeadLetter              State = "dead_letter"
)

// States lists every enumerated lifecycle state (invariant I1).
var States = []State{
	StateTelegramUpdateReceived,
	StateTelegramIngestInProg,
	StateUploaded,
	StateNormalizationInProgress,
	StateNormalized,
	StateEvaluationInProgress,
	StateEvaluated,
	StateDeliveryInProgress,
	StateDelivered,
	StateFailedTelegramIngest,
	StateFailedNormalization,
	StateFailedEvaluation,
	StateFailedDelivery,
	StateDeadLetter,
}

// IsValidState reports whether s is one of the enumerated lifecycle states.
func IsValidState(s State) bool {
	for _, known := range States {
		if known == s {
			return true
		}
	}
	return false
}

// StageLifecycle describes one stage's source/in-progress/success/failed
// states, the attempt counter field it owns, and its retry budget.
type StageLifecycle struct {
	Stage           Stage
	SourceState     State
	InProgressState State
	SuccessState    State
	FailedState     State
	AttemptField    string
	MaxAttempts     int
}

// DefaultMaxAttempts is the retry budget applied to every stage unless a
// config override says otherwise (invariant I4).
const DefaultMaxAttempts = 3

// StageLifecycles maps each stage to its lifecycle tuple (spec.md §4.1).
var StageLifecycles = map[Stage]StageLifecycle{
	StageRaw: {
		Stage:           StageRaw,
		SourceState:     StateTelegramUpdateReceived,
		InProgressState: StateTelegramIngestInProg,
		SuccessState:    StateUploaded,
		FailedState:     StateFailedTelegramIngest,
		AttemptField:    "attempt_telegram_ingest",
		MaxAttempts:     DefaultMaxAttempts,
	},
	StageNormalized: {
		Stage:           StageNormalized,
		SourceState:     StateUploaded,
		InProgressState: StateNormalizationInProgress,
		SuccessState:    StateNormalized,
		FailedState:     StateFailedNormalization,
		AttemptField:    "attempt_normalization",
		MaxAttempts:     DefaultMaxAttempts,
	},
	StageLLMOutput: {
		Stage:           StageLLMOutput,
		SourceState:     StateNormalized,
		InProgressState: StateEvaluationInProgress,
		SuccessState:    StateEvaluated,
		FailedState:     StateFailedEvaluation,
		AttemptField:    "attempt_evaluation",
		MaxAttempts:     DefaultMaxAttempts,
	},
	StageExports: {
		Stage:           StageExports,
		SourceState:     StateEvaluated,
		InProgressState: StateDeliveryInProgress,
		SuccessState:    StateDelivered,
		FailedState:     StateFailedDelivery,
		AttemptField:    "attempt_delivery",
		MaxAttempts:     DefaultMaxAttempts,
	},
}

// LifecycleFor returns the lifecycle tuple for stage, and whether it exists.
func LifecycleFor(stage Stage) (StageLifecycle, bool) {
	lc, ok := StageLifecycles[stage]
	return lc, ok
}
