/*
Package config reads eventcentric settings from YAML or JSON documents.

A Config wraps a decoded map[string]any. Accessors take a default that is
returned when the key is missing or holds a value of the wrong shape, so
callers never type-assert:

	cfg, err := config.FromFile("eventcentric.yaml")
	if err != nil {
	    return err
	}
	store := cfg.Sub("store")
	driver := store.String("driver", "memory")
	timeout := store.Duration("connect_timeout", 5*time.Second)

# Environment Variables

String values are expanded with os.ExpandEnv when read, so secrets can stay
out of files:

	store:
	  driver: postgres
	  dsn: ${EVENTCENTRIC_POSTGRES_DSN}

# Thread Safety

Config is safe for concurrent reads. The underlying map is not modified after
creation.
*/
package config
