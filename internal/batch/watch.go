package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a new file must stay quiet before it is
// processed, so half-written images settle first.
const settleDelay = 500 * time.Millisecond

// WatchLoop keeps processing files that appear in the input folder after
// the initial pass. Each create/write event arms (or re-arms) a per-file
// settle timer; the file is processed once the writes stop. The loop ends
// when ctx is cancelled.
func (r *Runner) WatchLoop(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(r.cfg.InputDir); err != nil {
		return err
	}
	r.log.Infof("Watching %s for new files (interrupt to stop)", r.cfg.InputDir)

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			path := ev.Name
			if !MatchFilter(filepath.Base(path), r.cfg.FilterTokens) {
				continue
			}

			mu.Lock()
			if t, armed := timers[path]; armed {
				t.Reset(settleDelay)
			} else {
				timers[path] = time.AfterFunc(settleDelay, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()

					if fi, err := os.Stat(path); err != nil || fi.IsDir() {
						return
					}
					r.log.Infof("[watch] %s", filepath.Base(path))
					_ = r.processFile(ctx, path)
				})
			}
			mu.Unlock()

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warnf("watch error: %v", werr)
		}
	}
}
