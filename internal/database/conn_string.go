package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/submux/internal/config"
)

// ConnString assembles the postgres URL the recorder pool is built
// from. Credentials are escaped by the URL encoder, and the muxd
// instance id is carried as application_name so recorder writes are
// attributable in pg_stat_activity.
func ConnString(cfg config.DBConfig, appName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}

	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if appName != "" {
		q.Set("application_name", appName)
	}
	u.RawQuery = q.Encode()

	return u.String()
}
