// Package route defines the value types shared by the registry and the
// routers: route kinds, immutable route paths, perform and remove
// configurations, and the structured routing error.
//
// A Path states intent; a PerformConfig carries the inputs and callbacks for
// one perform call:
//
//	path := route.Push(source, route.WithParam("tab", "inbox"))
//	if err := path.Validate(); err != nil {
//	    return err // InvalidConfiguration, nothing was constructed
//	}
//
// Errors carry an Action (which step failed) and a Code (why), so callers can
// branch without parsing strings:
//
//	if errors.Is(err, route.ErrNotFound) {
//	    // no router configured for this capability
//	}
package route
