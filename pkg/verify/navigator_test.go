package verify

import (
	"errors"
	"testing"

	"SiteProbe/pkg/browser/browsertest"
	"SiteProbe/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNavigate(t *testing.T) {
	tests := []struct {
		name   string
		route  *browsertest.Route
		target string
		want   bool
	}{
		{name: "loaded", route: &browsertest.Route{}, target: careersURL, want: true},
		{name: "error status still loads", route: &browsertest.Route{Status: 500}, target: careersURL, want: true},
		{name: "silent redirect", route: &browsertest.Route{RedirectTo: "https://platotech.com/"}, target: careersURL, want: false},
		{name: "navigation error", route: &browsertest.Route{Err: errors.New("net::ERR_NAME_NOT_RESOLVED")}, target: careersURL, want: false},
		{name: "relative URL", route: &browsertest.Route{}, target: "/careers/", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := browsertest.NewSession(map[string]*browsertest.Route{tt.target: tt.route})
			page, err := s.NewPage()
			require.NoError(t, err)

			core, logs := observer.New(zapcore.InfoLevel)
			nav := NewNavigator(logger.FromZap(zap.New(core)), DefaultTimeouts())

			assert.Equal(t, tt.want, nav.Navigate(page, tt.target))
			assert.Equal(t, 1, logs.FilterMessage("Navigating to URL: "+tt.target).Len())
			if tt.want {
				assert.Equal(t, 1, logs.FilterMessage("Successfully navigated to "+tt.target).Len())
			} else {
				assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
			}
		})
	}
}

func TestTimeoutsFromConfigDefaults(t *testing.T) {
	d := DefaultTimeouts()
	assert.Equal(t, "30s", d.Navigation.String())
	assert.Equal(t, "15s", d.URLMatch.String())
	assert.Equal(t, "5s", d.Scroll.String())
	assert.Equal(t, "10s", d.Visible.String())
	assert.Equal(t, "20s", d.Liveness.String())
}
