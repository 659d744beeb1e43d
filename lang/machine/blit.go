package machine

// BlitLayout records where a blit-typed Worker's fixed six inputs live in
// the register file (spec.md §4.4 "Blit variant"). lang/scriptapi computes
// these offsets once, when the blit Parser is declared, and they are
// reused for every pixel.
type BlitLayout struct {
	Src, Dst, X, Y, Shade, Half int
}

// BlitWorker is the specialized worker described in spec.md §4.4: it
// caches one Container and repeatedly binds per-pixel input before running
// it, reusing the same register-semantics as a general Worker.
type BlitWorker struct {
	Worker
	container *BlitContainer
	layout    BlitLayout
}

// BlitContainer pairs a cached Container with the layout it was compiled
// against, so a BlitWorker can be constructed once and reused across an
// entire blit operation (many pixels, one Container).
type BlitContainer struct {
	Container *Container
	Layout    BlitLayout
}

// NewBlitWorker returns a BlitWorker bound to bc's cached Container and
// layout.
func NewBlitWorker(handlers *HandlerTable, budget uint64, bc *BlitContainer) *BlitWorker {
	return &BlitWorker{
		Worker:    *NewWorker(handlers, budget),
		container: bc,
		layout:    bc.Layout,
	}
}

// ExecuteBlit binds one pixel's inputs at the blit Parser's declared
// offsets, runs the cached Container, and returns the runtime error it
// halted on, if any. The transformed pixel is written by
// the script itself through the editable dst pointer (spec.md §4.4 "emits
// the transformed pixel").
func (bw *BlitWorker) ExecuteBlit(src, dst *int32, x, y, shade, half int32) error {
	bw.Reset()
	RegSetPtr(&bw.rf, bw.layout.Src, src)
	RegSetPtr(&bw.rf, bw.layout.Dst, dst)
	RegSet(&bw.rf, bw.layout.X, int64(x))
	RegSet(&bw.rf, bw.layout.Y, int64(y))
	RegSet(&bw.rf, bw.layout.Shade, int64(shade))
	RegSet(&bw.rf, bw.layout.Half, int64(half))
	return bw.Execute(bw.container.Container)
}
