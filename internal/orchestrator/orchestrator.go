package orchestrator

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ytget/mixgrab/internal/bridge"
	"github.com/ytget/mixgrab/internal/convert"
	"github.com/ytget/mixgrab/internal/fetch"
	"github.com/ytget/mixgrab/internal/format"
	"github.com/ytget/mixgrab/internal/model"
	"github.com/ytget/mixgrab/internal/platform"
	"github.com/ytget/mixgrab/internal/pool"
)

// Extension assumed for fetched media whose source gives no hint. The
// capability reports the real path after the transfer.
const defaultMediaExt = ".webm"

// Command channel buffer; commands are tiny closures drained quickly.
const commandBuffer = 64

// Options carries the orchestrator's behavior switches.
type Options struct {
	MaxFetch   int
	MaxConvert int

	// ConversionEnabled turns the fetch-to-convert chain on.
	ConversionEnabled bool

	// Entitled gates conversion on the user's capability. Disabled
	// entitlement silently degrades to fetch-only; it is not an error.
	Entitled bool

	// TargetFormat names the conversion target, e.g. "mp3".
	TargetFormat string
}

// Orchestrator owns the task registries and runs the control loop. The
// registries have exactly one writer: the loop goroutine. Public
// methods post closures onto the command channel instead of touching
// state, so no registry access ever needs a lock.
type Orchestrator struct {
	bridge      *bridge.Bridge
	fetchPool   *pool.Pool
	convertPool *pool.Pool
	notifier    Notifier
	log         *zap.Logger
	opts        Options

	fetchItems   map[string]*model.WorkItem
	convertItems map[string]*model.WorkItem

	commands chan func()

	// Worker launchers, swappable in tests.
	runFetch   func(item *model.WorkItem)
	runConvert func(item *model.WorkItem)
}

// New creates an orchestrator. Run must be called before submitted
// work makes progress.
func New(fetcher fetch.Fetcher, notifier Notifier, opts Options, log *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		bridge:       bridge.New(bridge.DefaultBuffer),
		fetchPool:    pool.New(opts.MaxFetch),
		convertPool:  pool.New(opts.MaxConvert),
		notifier:     notifier,
		log:          log,
		opts:         opts,
		fetchItems:   make(map[string]*model.WorkItem),
		convertItems: make(map[string]*model.WorkItem),
		commands:     make(chan func(), commandBuffer),
	}
	o.runFetch = func(item *model.WorkItem) {
		fetch.NewWorker(item, fetcher, o.bridge, log).Run()
	}
	o.runConvert = func(item *model.WorkItem) {
		convert.NewWorker(item, o.bridge, log).Run()
	}
	return o
}

// Run drains bridge events and posted commands until done is closed.
// It is the only goroutine that reads or writes the registries.
func (o *Orchestrator) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case cmd := <-o.commands:
			cmd()
		case ev := <-o.bridge.Events():
			o.handleEvent(ev)
		}
	}
}

// SubmitBatch schedules downloads for the given source URLs into
// destDir. It returns immediately; validation failures surface through
// the notifier like any other task error. Sources already registered
// under either stage are skipped. An empty batch is a no-op and never
// fires BatchStarted.
func (o *Orchestrator) SubmitBatch(sourceRefs []string, destDir string) {
	refs := make([]string, len(sourceRefs))
	copy(refs, sourceRefs)
	o.commands <- func() {
		o.submitBatch(refs, destDir)
	}
}

// CancelAll requests cooperative cancellation of every registered item.
// Each worker winds down at its next suspension point and reports
// through its normal terminal notification.
func (o *Orchestrator) CancelAll() {
	o.commands <- func() {
		o.log.Info("cancelling all tasks",
			zap.Int("fetching", len(o.fetchItems)),
			zap.Int("converting", len(o.convertItems)))
		for _, item := range o.fetchItems {
			item.Cancel()
		}
		for _, item := range o.convertItems {
			item.Cancel()
		}
	}
}

// ResizePools adjusts both concurrency limits. Running work is never
// interrupted; the new limits apply as slots free up.
func (o *Orchestrator) ResizePools(maxFetch, maxConvert int) {
	o.commands <- func() {
		o.fetchPool.Resize(maxFetch)
		o.convertPool.Resize(maxConvert)
		o.log.Info("resized pools",
			zap.Int("max_fetch", o.fetchPool.Limit()),
			zap.Int("max_convert", o.convertPool.Limit()))
	}
}

func (o *Orchestrator) submitBatch(sourceRefs []string, destDir string) {
	var accepted []string
	for _, ref := range sourceRefs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, dup := o.fetchItems[ref]; dup {
			continue
		}
		if _, dup := o.convertItems[ref]; dup {
			continue
		}
		accepted = append(accepted, ref)
	}
	if len(accepted) == 0 {
		return
	}

	if err := platform.EnsureDir(destDir); err != nil {
		o.log.Error("destination directory unavailable",
			zap.String("dest", destDir),
			zap.Error(err))
		for _, ref := range accepted {
			o.notifier.TaskError(ref, "Download failed: "+err.Error())
		}
		return
	}

	batchID := uuid.NewString()
	o.log.Info("batch submitted",
		zap.String("batch", batchID),
		zap.Int("items", len(accepted)),
		zap.String("dest", destDir))

	if len(o.fetchItems)+len(o.convertItems) == 0 {
		o.notifier.BatchStarted()
	}

	for _, ref := range accepted {
		item := model.NewFetchItem(ref, destDir, deriveFileName(ref))
		o.fetchItems[ref] = item
		o.dispatch(o.fetchPool, item, o.runFetch)
	}
}

// dispatch hands an item to a pool. The running transition is posted
// back to the loop so the registries keep their single writer.
func (o *Orchestrator) dispatch(p *pool.Pool, item *model.WorkItem, run func(*model.WorkItem)) {
	p.Submit(func() {
		o.commands <- func() {
			if item.Status == model.StatusQueued {
				item.Status = model.StatusRunning
			}
		}
		run(item)
	})
}

func (o *Orchestrator) handleEvent(ev bridge.Event) {
	switch ev.Type {
	case bridge.EventProgress:
		o.handleProgress(ev)
	case bridge.EventSucceeded:
		o.handleSuccess(ev)
	case bridge.EventErrored:
		o.handleError(ev)
	}
}

func (o *Orchestrator) handleProgress(ev bridge.Event) {
	item := o.lookup(ev.ID, ev.Stage)
	if item == nil {
		return
	}
	o.notifier.TaskProgress(ev.ID, ev.Text)

	// The cancellation notice is the terminal event of a cancelled
	// item. It is honored unconditionally: a worker that reports it
	// will emit nothing further, so leaving the item registered would
	// stall completion forever.
	if ev.Text == bridge.CancelledText {
		item.Status = model.StatusCancelled
		o.unregister(ev.ID, ev.Stage)
		o.checkCompletion()
	}
}

func (o *Orchestrator) handleSuccess(ev bridge.Event) {
	item := o.lookup(ev.ID, ev.Stage)
	if item == nil {
		return
	}
	item.Status = model.StatusSucceeded
	o.unregister(ev.ID, ev.Stage)

	if ev.Stage == model.StageFetch {
		if next, ok := o.planConversion(item, ev.Path); ok {
			o.convertItems[next.ID] = next
			o.notifier.TaskResult(ev.ID, ev.Path, true)
			o.dispatch(o.convertPool, next, o.runConvert)
			return
		}
	}

	o.notifier.TaskResult(ev.ID, ev.Path, false)
	o.checkCompletion()
}

func (o *Orchestrator) handleError(ev bridge.Event) {
	item := o.lookup(ev.ID, ev.Stage)
	if item == nil {
		return
	}
	item.Status = model.StatusFailed
	o.unregister(ev.ID, ev.Stage)
	o.notifier.TaskError(ev.ID, ev.Text)
	o.checkCompletion()
}

// planConversion decides whether a fetched file needs a conversion and
// builds the follow-up item. Files already in the target format pass
// through untouched.
func (o *Orchestrator) planConversion(item *model.WorkItem, fetchedPath string) (*model.WorkItem, bool) {
	if !o.opts.ConversionEnabled || !o.opts.Entitled {
		return nil, false
	}
	f, ok := format.Lookup(o.opts.TargetFormat)
	if !ok {
		o.log.Warn("unknown target format, skipping conversion",
			zap.String("format", o.opts.TargetFormat))
		return nil, false
	}
	if f.Matches(fetchedPath) {
		return nil, false
	}
	return model.NewConvertItem(item.ID, fetchedPath, item.DestDir, f.Name, f.Extension), true
}

func (o *Orchestrator) lookup(id string, stage model.Stage) *model.WorkItem {
	if stage == model.StageConvert {
		return o.convertItems[id]
	}
	return o.fetchItems[id]
}

func (o *Orchestrator) unregister(id string, stage model.Stage) {
	if stage == model.StageConvert {
		delete(o.convertItems, id)
		return
	}
	delete(o.fetchItems, id)
}

// checkCompletion fires AllFinished when the last item leaves the
// registries. Evaluated synchronously in the loop, so the spawned
// conversion of a fetched file is always registered before its fetch
// can look like the last task.
func (o *Orchestrator) checkCompletion() {
	if len(o.fetchItems) == 0 && len(o.convertItems) == 0 {
		o.log.Info("all tasks finished")
		o.notifier.AllFinished()
	}
}

// deriveFileName picks an on-disk name for a source URL. The name is a
// placeholder until the capability reports what it actually wrote, but
// it must be filesystem-safe and unique per source: different URLs can
// share a basename, and concurrent workers must never contend on the
// same temp or final file. A short hash of the full source keeps the
// names distinct.
func deriveFileName(sourceRef string) string {
	var name string
	if u, err := url.Parse(sourceRef); err == nil {
		name = path.Base(u.Path)
	}
	name = platform.SanitizeFilename(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		name = uuid.NewString()
	}
	ext := filepath.Ext(name)
	if ext == "" {
		ext = defaultMediaExt
	} else {
		name = strings.TrimSuffix(name, ext)
	}
	return fmt.Sprintf("%s-%s%s", name, shortHash(sourceRef), ext)
}

func shortHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
