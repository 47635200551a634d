package middleware

import (
	"log/slog"

	"github.com/strada-dev/strada/pkg/nav"
)

// Logger creates an event observer that logs the navigation lifecycle.
// Terminal events log at Info (or Warn for failures); phase events log at
// Debug so a production logger stays quiet between navigations.
func Logger(log *slog.Logger) nav.Observer {
	if log == nil {
		log = slog.Default()
	}
	return func(ev nav.Event) {
		switch ev.Kind {
		case nav.EventEnd:
			log.Info("navigation completed", "id", ev.NavigationID, "url", ev.URL)
		case nav.EventCancel:
			log.Info("navigation cancelled", "id", ev.NavigationID, "url", ev.URL, "reason", string(ev.Reason))
		case nav.EventError:
			log.Warn("navigation failed", "id", ev.NavigationID, "url", ev.URL, "err", ev.Err)
		case nav.EventRedirect:
			log.Debug("navigation redirected", "id", ev.NavigationID, "from", ev.URL, "to", ev.RedirectTo)
		default:
			log.Debug("navigation "+ev.Kind.String(), "id", ev.NavigationID, "url", ev.URL)
		}
	}
}
