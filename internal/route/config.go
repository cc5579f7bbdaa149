package route

// PerformConfig holds the inputs and callback slots for a perform operation.
//
// Routers with extra inputs embed PerformConfig in their own struct and use
// a pointer to that struct as their configuration type:
//
//	type LoginConfig struct {
//	    route.PerformConfig
//	    Username string
//	}
//
// Every handler is optional and fires at most once per router instance.
type PerformConfig struct {
	// Animated requests an animated transition. Defaults to the path kind's
	// Animates value when the config is created by a router.
	Animated bool

	// PrepareDestination is called with the built destination before any
	// transition. Returning an error fails the route with action init.
	PrepareDestination func(destination any) error

	// SuccessHandler is called once the route reaches the routed state.
	SuccessHandler func(destination any)

	// ErrorHandler is called once when the route fails.
	ErrorHandler func(action Action, err error)

	// CompletionHandler is called once after SuccessHandler or ErrorHandler.
	CompletionHandler func(ok bool, destination any, action Action, err error)

	typedPrepare    func(destination any) error
	typedSuccess    func(destination any)
	typedCompletion func(ok bool, destination any, action Action, err error)
}

// Base returns the config itself, so *PerformConfig and pointers to every
// struct embedding it satisfy Configurer.
func (c *PerformConfig) Base() *PerformConfig {
	return c
}

// Configurer is implemented by every perform configuration type.
type Configurer interface {
	Base() *PerformConfig
}

// RunPrepare runs the untyped then the typed preparation hooks.
func (c *PerformConfig) RunPrepare(destination any) error {
	if c.PrepareDestination != nil {
		if err := c.PrepareDestination(destination); err != nil {
			return err
		}
	}
	if c.typedPrepare != nil {
		return c.typedPrepare(destination)
	}
	return nil
}

// NotifySuccess runs the success handlers then the completion handlers.
func (c *PerformConfig) NotifySuccess(destination any, action Action) {
	if c.SuccessHandler != nil {
		c.SuccessHandler(destination)
	}
	if c.typedSuccess != nil {
		c.typedSuccess(destination)
	}
	c.notifyCompletion(true, destination, action, nil)
}

// NotifyFailure runs the error handler then the completion handlers.
func (c *PerformConfig) NotifyFailure(action Action, err error) {
	if c.ErrorHandler != nil {
		c.ErrorHandler(action, err)
	}
	c.notifyCompletion(false, nil, action, err)
}

func (c *PerformConfig) notifyCompletion(ok bool, destination any, action Action, err error) {
	if c.CompletionHandler != nil {
		c.CompletionHandler(ok, destination, action, err)
	}
	if c.typedCompletion != nil {
		c.typedCompletion(ok, destination, action, err)
	}
}

// Hooks attaches destination-typed callbacks to a configuration. The facade
// passes a Hooks bound to its destination type to every config builder.
type Hooks[D any] struct {
	cfg *PerformConfig
}

// NewHooks binds typed hooks to cfg.
func NewHooks[D any](cfg Configurer) Hooks[D] {
	return Hooks[D]{cfg: cfg.Base()}
}

// Prepare sets the typed preparation hook. It runs after PrepareDestination.
func (h Hooks[D]) Prepare(fn func(destination D) error) {
	if fn == nil {
		h.cfg.typedPrepare = nil
		return
	}
	h.cfg.typedPrepare = func(destination any) error {
		d, _ := destination.(D)
		return fn(d)
	}
}

// Success sets the typed success hook. It runs after SuccessHandler.
func (h Hooks[D]) Success(fn func(destination D)) {
	if fn == nil {
		h.cfg.typedSuccess = nil
		return
	}
	h.cfg.typedSuccess = func(destination any) {
		d, _ := destination.(D)
		fn(d)
	}
}

// Completion sets the typed completion hook. It runs after CompletionHandler.
// On failure destination is the zero value of D.
func (h Hooks[D]) Completion(fn func(ok bool, destination D, action Action, err error)) {
	if fn == nil {
		h.cfg.typedCompletion = nil
		return
	}
	h.cfg.typedCompletion = func(ok bool, destination any, action Action, err error) {
		d, _ := destination.(D)
		fn(ok, d, action, err)
	}
}

// RemoveConfig holds the inputs and callback slots for a remove operation.
type RemoveConfig struct {
	// Animated requests an animated removal.
	Animated bool

	// PrepareForRemove is called with the destination before the remove
	// transition. Returning an error fails the removal.
	PrepareForRemove func(destination any) error

	// SuccessHandler is called once the route reaches the removed state.
	SuccessHandler func()

	// ErrorHandler is called once when the removal fails.
	ErrorHandler func(action Action, err error)

	// CompletionHandler is called once after SuccessHandler or ErrorHandler.
	CompletionHandler func(ok bool, action Action, err error)
}

// Clone returns a shallow copy of the config.
func (c *RemoveConfig) Clone() *RemoveConfig {
	if c == nil {
		return &RemoveConfig{}
	}
	cp := *c
	return &cp
}

// NotifySuccess runs SuccessHandler then CompletionHandler.
func (c *RemoveConfig) NotifySuccess() {
	if c.SuccessHandler != nil {
		c.SuccessHandler()
	}
	if c.CompletionHandler != nil {
		c.CompletionHandler(true, ActionRemoveRoute, nil)
	}
}

// NotifyFailure runs ErrorHandler then CompletionHandler.
func (c *RemoveConfig) NotifyFailure(action Action, err error) {
	if c.ErrorHandler != nil {
		c.ErrorHandler(action, err)
	}
	if c.CompletionHandler != nil {
		c.CompletionHandler(false, action, err)
	}
}
