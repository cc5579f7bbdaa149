// Package router drives destinations through the perform/remove lifecycle.
//
// A router is declared as data with Spec and registered under one or more
// capabilities. Call sites bind a Type facade to a capability and a pair of
// destination and configuration types:
//
//	desc := router.MustDescriptor(router.Spec[*LoginScreen, *LoginConfig]{
//	    Name:      "login",
//	    NewConfig: func() *LoginConfig { return &LoginConfig{} },
//	    Build: func(ctx context.Context, cfg *LoginConfig) (*LoginScreen, error) {
//	        return NewLoginScreen(cfg.Username), nil
//	    },
//	})
//	_ = router.RegisterProtocol[LoginView](reg, desc)
//
//	eng := router.NewEngine(reg, router.WithTransitioner(stack))
//	r, err := router.To[LoginView, *LoginConfig](eng, registry.Protocol[LoginView]()).
//	    PerformPath(ctx, route.Push(home), nil)
//
// Each perform call creates one Router instance. Structural problems
// (invalid path, unresolved capability, mismatched types) are returned
// synchronously with a nil instance. Failures after the instance exists are
// reported only through the configuration callbacks.
//
// The instance state machine:
//
//	unrouted -> preparing -> routing -> routed -> removing -> removed
//	                |           |                    |
//	                +-----------+-> perform_error    +-> remove_error
//
// MakeDestination paths go from preparing straight to routed.
package router
