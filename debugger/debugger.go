// Package debugger composes every other debugger-core package into the
// façade described in spec.md §4.11: the single object an emulation
// core's CPU/PPU loop calls into on every access, and the single object
// a UI queries for state.
package debugger

import (
	"os"

	"github.com/jetsetilly/retrodbg/breakpoints"
	"github.com/jetsetilly/retrodbg/callstack"
	"github.com/jetsetilly/retrodbg/cdl"
	"github.com/jetsetilly/retrodbg/cpukind"
	"github.com/jetsetilly/retrodbg/disasm"
	"github.com/jetsetilly/retrodbg/events"
	"github.com/jetsetilly/retrodbg/expr"
	"github.com/jetsetilly/retrodbg/freeze"
	"github.com/jetsetilly/retrodbg/graphviz"
	"github.com/jetsetilly/retrodbg/labels"
	"github.com/jetsetilly/retrodbg/logger"
	"github.com/jetsetilly/retrodbg/memmap"
	"github.com/jetsetilly/retrodbg/script"
	"github.com/jetsetilly/retrodbg/step"
	"github.com/jetsetilly/retrodbg/term"
	"github.com/jetsetilly/retrodbg/webstats"
)

// Debugger composes the full debugger core for one loaded ROM. It is
// constructed after ROM load (once the memory map is known) and
// discarded on ROM unload, per spec.md §4.11.
type Debugger struct {
	Cpu cpukind.EmulatedCpu
	Bus cpukind.MemoryBus

	Labels      *labels.Store
	Exprs       *expr.Cache
	Breakpoints *breakpoints.Engine
	Disasm      *disasm.Cache
	CDL         map[memmap.Region]*cdl.Recorder
	Events      *events.Recorder
	CallStack   *callstack.Stack
	Profiler    *callstack.Profiler
	Step        *step.Coordinator
	Script      *script.Bridge
	Frozen      freeze.Set

	// Console is the optional TTY command-input surface attached via
	// AttachConsole; nil until a front end attaches one.
	Console *term.Terminal

	// stats is the optional webstats.Server started via StartWebStats;
	// nil until a front end opts in.
	stats *webstats.Server

	// armed gates the entire per-access fan-out behind one flag, per
	// spec.md §4.11's "short-circuit on debugger armed for this
	// CpuKind" requirement.
	armed bool

	accessCount int64
}

// New constructs a Debugger attached to cpu/bus, with empty state for
// every component. cdlSizes gives the byte size of every CDL-tracked
// region so CDL recorders and disassembly cache slots can be
// preallocated.
func New(cpu cpukind.EmulatedCpu, bus cpukind.MemoryBus, cdlSizes map[memmap.Region]int) *Debugger {
	exprs := expr.NewCache()
	prof := callstack.NewProfiler()
	dis := disasm.New(8)

	cdlRecorders := make(map[memmap.Region]*cdl.Recorder, len(cdlSizes))
	for region, size := range cdlSizes {
		cdlRecorders[region] = cdl.New(size)
		dis.Resize(region, size)
	}

	return &Debugger{
		Cpu:         cpu,
		Bus:         bus,
		Labels:      labels.New(),
		Exprs:       exprs,
		Breakpoints: breakpoints.New(exprs),
		Disasm:      dis,
		CDL:         cdlRecorders,
		Events:      events.New(),
		CallStack:   callstack.New(prof),
		Profiler:    prof,
		Step:        step.NewCoordinator(),
		Script:      script.New(),
		armed:       true,
	}
}

// Arm and Disarm toggle the top-level short-circuit: a disarmed
// debugger costs one boolean check per access and nothing else.
func (d *Debugger) Arm()    { d.armed = true }
func (d *Debugger) Disarm() { d.armed = false }
func (d *Debugger) Armed() bool { return d.armed }

func (d *Debugger) evalContext() expr.Context {
	return expr.Context{
		Cpu:          d.Cpu,
		Bus:          d.Bus,
		ResolveLabel: d.Labels.Resolve,
	}
}

// BeforeExec runs the step-coordinator pre-check and fires the script
// exec callback. It records no event in the event recorder.
func (d *Debugger) BeforeExec(pc uint32) {
	if !d.armed {
		return
	}

	if req := d.Step.Request(); req.PCReached(pc) {
		d.Step.Halt(req)
	}

	d.Script.SetProcessExec(true)
	d.Script.Dispatch(memmap.Operation{Addr: pc, Kind: memmap.OpExecOpcode}, 0)
	d.Script.SetProcessExec(false)
}

// AfterExec marks the executed bytes in the CDL, populates the
// disassembly cache, decrements the step coordinator's per-instruction
// counters, and classifies any resulting break.
func (d *Debugger) AfterExec(ai memmap.AddressInfo, width int, decode disasm.Decoder) {
	if !d.armed {
		return
	}

	if rec, ok := d.CDL[ai.Region]; ok {
		rec.MarkCode(int(ai.Offset), width, 0)
	}

	d.Disasm.Get(ai.Region, ai.Offset, decode, uint32(ai.Offset))

	req := d.Step.Request()
	if req.TickInstruction() {
		d.Step.Halt(req)
	}
}

// OnRead runs CDL marking, the access counter, the breakpoint check
// and the script read callback for a read-class access.
func (d *Debugger) OnRead(op memmap.Operation, width int) breakpoints.ID {
	if !d.armed {
		return -1
	}
	d.accessCount++

	if op.Region != memmap.RegionUnknown {
		if rec, ok := d.CDL[op.Region]; ok && !op.Kind.IsDummy() {
			rec.MarkData(int(op.Addr), width, 0)
		}
	}

	id := d.Breakpoints.Check(op, width, d.Events, d.evalContext())
	d.Script.Dispatch(op, uint8(op.Value))
	return id
}

// OnWrite runs the frozen-address check, the access counter, CDL side
// effects, the breakpoint check, the script write callback, and
// disassembly-cache invalidation for a write-class access.
//
// It returns (allowed, matchedBreakpoint): allowed is false if a
// frozen address blocked the write outright, in which case the caller
// must not apply the write to memory at all.
func (d *Debugger) OnWrite(op memmap.Operation, width int, execRegion bool) (bool, breakpoints.ID) {
	if !d.armed {
		return true, -1
	}
	d.accessCount++

	if !op.Kind.IsDummy() && !op.Kind.IsDMA() {
		if !d.Frozen.AllowWrite(op.Region, int32(op.Addr), int32(op.RawAddr)) {
			logger.Logf("debugger", "blocked write to frozen address %s", op.Region)
			return false, -1
		}
	}

	if rec, ok := d.CDL[op.Region]; ok && !op.Kind.IsDummy() {
		rec.MarkData(int(op.Addr), width, 0)
	}

	id := d.Breakpoints.Check(op, width, d.Events, d.evalContext())
	d.Script.Dispatch(op, uint8(op.Value))

	if execRegion {
		d.Disasm.InvalidateByte(op.Region, int32(op.Addr))
	}

	return true, id
}

// OnInterrupt records the interrupt event, pushes an interrupt-flagged
// call-stack frame, and checks the step coordinator's run-to-IRQ/NMI
// condition.
func (d *Debugger) OnInterrupt(kind step.BreakSource, entryAddr, returnAddr uint32, cycle int64) {
	if !d.armed {
		return
	}

	d.Events.Record(events.DebugEvent{Category: events.CategoryInterrupt})
	d.CallStack.Push(entryAddr, returnAddr, true, cycle)

	req := d.Step.Request()
	req.SetBreakSource(kind, true)
	d.Step.Halt(req)
}

// Run releases the emulation thread to run freely.
func (d *Debugger) Run() { d.Step.Run() }

// Pause halts the emulation thread at the next suspension point.
func (d *Debugger) Pause() { d.Step.Pause() }

// StepInstruction arms a single-instruction step and releases the
// emulation thread.
func (d *Debugger) StepInstruction() {
	req := step.NewRequest()
	req.StepCount = 1
	req.Type = step.TypeInstruction
	d.Step.Step(req)
}

// StepOver arms a step that halts when the stack pointer returns to its
// current value (ie. the called subroutine has returned).
func (d *Debugger) StepOver(sp uint32) {
	req := step.NewRequest()
	req.BreakStackPointer = int64(sp)
	req.Type = step.TypeOver
	d.Step.Step(req)
}

// State is a snapshot of debugger-visible state for the UI.
type State struct {
	Running       bool
	EffectiveBreak step.BreakSource
	AccessCount   int64
	CallDepth     int
}

// GetState returns a consistent snapshot for the UI thread.
func (d *Debugger) GetState() State {
	req := d.Step.Request()
	return State{
		Running:        d.Step.Running(),
		EffectiveBreak: req.EffectiveSource(),
		AccessCount:    d.accessCount,
		CallDepth:      d.CallStack.Len(),
	}
}

// SaveCDL and LoadCDL persist/restore the CDL recorder for a region.
func (d *Debugger) SaveCDL(region memmap.Region, path string, romCRC uint32) error {
	rec, ok := d.CDL[region]
	if !ok {
		return nil
	}
	return rec.Save(path, romCRC)
}

func (d *Debugger) LoadCDL(region memmap.Region, path string) (cdl.LoadResult, error) {
	rec, ok := d.CDL[region]
	if !ok {
		return cdl.LoadResult{}, nil
	}
	return rec.Load(path)
}

// SetCDLPhase records the emulation core's current execution-phase
// label (eg. a kernel phase like VBLANK or visible-screen) on every
// tracked CDL region, per spec.md §12's phase-keyed statistics
// supplement. The emulation core calls this on every phase transition.
func (d *Debugger) SetCDLPhase(phase string) {
	for _, rec := range d.CDL {
		rec.SetPhase(phase)
	}
}

// CDLPhaseStats aggregates the per-phase CDL breakdown (§12) across
// every tracked region, keyed by the phase label supplied to
// SetCDLPhase. This is the shape webstats' dashboard endpoint serves.
func (d *Debugger) CDLPhaseStats() map[string]cdl.Stats {
	out := map[string]cdl.Stats{}
	for _, rec := range d.CDL {
		for phase, s := range rec.PhaseStats() {
			agg := out[phase]
			agg.TotalBytes += s.TotalBytes
			agg.CodeBytes += s.CodeBytes
			agg.DataBytes += s.DataBytes
			agg.JumpTargets += s.JumpTargets
			agg.SubEntryPoints += s.SubEntryPoints
			out[phase] = agg
		}
	}
	return out
}

// AttachConsole wires an interactive TTY command-input surface (opened
// with term.Open by the caller) to the façade, per spec.md §4.11's
// "some way to receive run()/pause()/step_*() requests" need. t may be
// nil to detach.
func (d *Debugger) AttachConsole(t *term.Terminal) {
	d.Console = t
}

// PrintState writes a one-line rendering of GetState() to the attached
// console, if any; a no-op when no console is attached.
func (d *Debugger) PrintState() {
	if d.Console == nil {
		return
	}
	s := d.GetState()
	d.Console.Print("running=%v break=%v accesses=%d depth=%d\n", s.Running, s.EffectiveBreak, s.AccessCount, s.CallDepth)
}

// DumpGraph writes the current call stack and label store to
// callstack.dot and labels.dot inside dir, for offline inspection with
// Graphviz.
func (d *Debugger) DumpGraph(dir string) error {
	if err := graphviz.DumpCallStackToFile(dir+"/callstack.dot", d.CallStack); err != nil {
		return err
	}
	f, err := os.Create(dir + "/labels.dot")
	if err != nil {
		return err
	}
	defer f.Close()
	graphviz.WriteLabels(f, d.Labels)
	return nil
}

// StartWebStats starts the opt-in statsview dashboard plus this
// module's own profiler/CDL JSON endpoints, wired to this Debugger's
// live profiler and per-phase CDL stats. Callers that want the server
// stopped again should keep the returned *webstats.Server; the
// Debugger also tracks it so StopWebStats can tear it down.
func (d *Debugger) StartWebStats(dashboardAddr, jsonAddr string) *webstats.Server {
	d.stats = webstats.New(dashboardAddr, jsonAddr, d.Profiler, d.CDLPhaseStats)
	d.stats.Start()
	return d.stats
}

// StopWebStats tears down a dashboard previously started with
// StartWebStats, if any.
func (d *Debugger) StopWebStats() {
	if d.stats != nil {
		d.stats.Stop()
		d.stats = nil
	}
}
