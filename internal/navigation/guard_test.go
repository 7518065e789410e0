package navigation

import "testing"

func TestPermittedRoute(t *testing.T) {
	tests := []struct {
		name        string
		introSeen   bool
		hasIdentity bool
		requested   string
		want        string
	}{
		{"fresh profile is sent to intro", false, false, "/dashboard", "/intro"},
		{"intro always reachable", false, false, "/intro", "/intro"},
		{"login needs intro first", false, false, "/login", "/intro"},
		{"intro gate wins with identity", false, true, "/create", "/intro"},
		{"anonymous is sent to login", true, false, "/create", "/login"},
		{"anonymous may log in", true, false, "/login", "/login"},
		{"anonymous may revisit intro", true, false, "/intro", "/intro"},
		{"anonymous home is sent to login", true, false, "/", "/login"},
		{"logged in passes", true, true, "/active", "/active"},
		{"logged in may open login", true, true, "/login", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PermittedRoute(tt.introSeen, tt.hasIdentity, tt.requested)
			if got != tt.want {
				t.Fatalf("PermittedRoute(%v, %v, %q) = %q, want %q", tt.introSeen, tt.hasIdentity, tt.requested, got, tt.want)
			}
			if again := PermittedRoute(tt.introSeen, tt.hasIdentity, got); again != got {
				t.Fatalf("expected idempotence, %q became %q", got, again)
			}
		})
	}
}
