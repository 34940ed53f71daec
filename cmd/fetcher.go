package cmd

import (
	"os"

	"github.com/pkg/errors"

	"f1replaybot/log"
	"f1replaybot/pkg/cache"
	"f1replaybot/pkg/client"
	"f1replaybot/pkg/config"
	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/telemetry"
)

// newFetcher returns the backend client and the fetcher the commands load
// payloads through. The caller must invoke the returned close func.
func newFetcher() (*client.Client, replay.Fetcher, func(), error) {
	cl := client.New(config.BackendURL, client.WithTimeout(config.Timeout))
	if config.CachePath == "" {
		return cl, cl, func() {}, nil
	}
	store, err := cache.Open(config.CachePath)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("using payload cache",
		log.String("path", config.CachePath),
		log.Duration("ttl", config.CacheTTL))
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Warn("closing cache", log.ErrorField(err))
		}
	}
	return cl, cache.NewCachingFetcher(store, cl, config.CacheTTL), closeFn, nil
}

// readPayload decodes a payload previously saved from the backend.
func readPayload(path string) (*telemetry.Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening payload")
	}
	defer f.Close()
	return telemetry.Decode(f)
}

func keyFromArgs(args []string, driver string) (telemetry.LookupKey, error) {
	return telemetry.ParseKey(args[0], args[1], args[2], driver)
}
