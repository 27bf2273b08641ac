package accum

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosSplitRaise is a hook position that triggers when the controller
// raises the split factor after a resource-exhaustion failure.
var HookPosSplitRaise = &HookPos{Name: "SplitRaise"}

// HookPosAttemptStart is a hook position that triggers before the first
// micro-batch of an attempt runs.
var HookPosAttemptStart = &HookPos{Name: "AttemptStart"}

// HookPosAttemptAbort is a hook position that triggers when an attempt is
// abandoned and the partial accumulation is rolled back.
var HookPosAttemptAbort = &HookPos{Name: "AttemptAbort"}

// HookPosBatchComplete is a hook position that triggers after all the
// micro-batches of a logical batch complete.
var HookPosBatchComplete = &HookPos{Name: "BatchComplete"}

// HookPosSplitExhausted is a hook position that triggers when an attempt
// with single-sample micro-batches still exhausts the resource. It replaces
// HookPosAttemptAbort for the final attempt of the batch.
var HookPosSplitExhausted = &HookPos{Name: "SplitExhausted"}

// HookPosStepError is a hook position that triggers when a step fails with
// an error other than resource exhaustion.
var HookPosStepError = &HookPos{Name: "StepError"}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
