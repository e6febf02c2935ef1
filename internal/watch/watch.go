// Package watch implements the optional --watch mode on top of
// internal/driver: it reruns Compile whenever one of the locations it
// is given changes (the compile command passes the sketch file and the
// --library search paths; a directory is watched non-recursively, so
// only entries directly inside it are seen), mirroring the intent of the teacher's
// types.Context.WatchedLocations field (a paths.PathList the legacy
// builder never wired a watcher to).
package watch

import (
	"github.com/aily-project/aily-builder/internal/driver"
	"github.com/aily-project/aily-builder/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Event is published after every rerun, successful or not.
type Event struct {
	Result *driver.Result
	Err    error
}

// Run watches locations and calls driver.Compile(req) once up front
// and again after every write/create/remove/rename event, publishing each
// outcome on the returned channel until stop is closed.
func Run(req driver.Request, locations []string, stop <-chan struct{}) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, loc := range locations {
		if err := watcher.Add(loc); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "watch: adding %s", loc)
		}
	}

	events := make(chan Event, 1)
	log := req.Logger
	if log == nil {
		log = logger.Discard{}
	}

	go func() {
		defer watcher.Close()
		defer close(events)

		runOnce := func() {
			res, err := driver.Compile(req)
			events <- Event{Result: res, Err: err}
		}
		runOnce()

		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				log.Println(logger.LevelInfo, "rebuilding: %s changed", ev.Name)
				runOnce()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Println(logger.LevelWarn, "watch error: %v", err)
			}
		}
	}()

	return events, nil
}
