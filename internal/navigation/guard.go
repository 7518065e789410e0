// Package navigation decides which page a browser profile may see.
package navigation

const (
	RouteHome      = "/"
	RouteIntro     = "/intro"
	RouteLogin     = "/login"
	RouteCreate    = "/create"
	RoutePayment   = "/payment"
	RouteActive    = "/active"
	RouteDashboard = "/dashboard"
)

// PermittedRoute returns requested when it may be shown, otherwise the route
// to show instead. The intro gate wins over the login gate.
func PermittedRoute(introSeen, hasIdentity bool, requested string) string {
	if !introSeen && requested != RouteIntro {
		return RouteIntro
	}
	if !hasIdentity && requested != RouteLogin && requested != RouteIntro {
		return RouteLogin
	}
	return requested
}
