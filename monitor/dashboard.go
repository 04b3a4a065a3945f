package monitor

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/neurolink/classifier"
	"github.com/lixenwraith/neurolink/mindwave"
)

// frameInterval is the redraw period
const frameInterval = 100 * time.Millisecond

// barWidth is the cell width of a ratio bar
const barWidth = 30

// Controller is the subset of the headset service the keys drive
type Controller interface {
	Connect(ctx context.Context) error
	Disconnect()
	ToggleMode() mindwave.Mode
}

// View is everything a frame shows, captured once per draw
type View struct {
	State      mindwave.State
	Countdown  int // Whole seconds until the pending window expires
	Record     mindwave.Record
	HasRecord  bool
	RawEEG     int
	Blink      int
	Mode       mindwave.Mode
	WindowLen  int
	WindowCap  int
	Ratios     [mindwave.BandCount]float64
	Assessment string
	Score      float64
	Message    string
}

// Dashboard renders the session on a terminal screen
type Dashboard struct {
	screen  tcell.Screen
	session *mindwave.Session
	cal     *mindwave.Calibrator
	ctrl    Controller
	assess  *classifier.Assessor
	log     *log.Logger

	mu        sync.Mutex
	record    mindwave.Record
	hasRecord bool
	rawEEG    int
	blink     int
	message   string
}

// Config wires a Dashboard; Assessor may be nil
type Config struct {
	Session    *mindwave.Session
	Calibrator *mindwave.Calibrator
	Controller Controller
	Assessor   *classifier.Assessor
	Logger     *log.Logger
}

// New creates a dashboard drawing on screen; the caller owns Init and Fini
func New(screen tcell.Screen, cfg Config) *Dashboard {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Dashboard{
		screen:  screen,
		session: cfg.Session,
		cal:     cfg.Calibrator,
		ctrl:    cfg.Controller,
		assess:  cfg.Assessor,
		log:     logger,
	}
}

// Listener keeps the latest record and samples for display
func (d *Dashboard) Listener() mindwave.Listener {
	return mindwave.Listener{
		OnRecord: func(r mindwave.Record) {
			d.mu.Lock()
			d.record, d.hasRecord = r, true
			d.mu.Unlock()
		},
		OnRawEEG: func(v int) {
			d.mu.Lock()
			d.rawEEG = v
			d.mu.Unlock()
		},
		OnBlink: func(v int) {
			d.mu.Lock()
			d.blink = v
			d.mu.Unlock()
		},
		OnTimeout: func() { d.setMessage("connection timed out") },
	}
}

func (d *Dashboard) setMessage(msg string) {
	d.mu.Lock()
	d.message = msg
	d.mu.Unlock()
}

// Snapshot captures the current view
func (d *Dashboard) Snapshot() View {
	d.mu.Lock()
	v := View{
		Record:    d.record,
		HasRecord: d.hasRecord,
		RawEEG:    d.rawEEG,
		Blink:     d.blink,
		Message:   d.message,
	}
	d.mu.Unlock()

	v.State = d.session.State()
	if v.State == mindwave.StatePendingConnection {
		remaining := d.session.TimeoutDelay() - d.session.TimeoutElapsed()
		v.Countdown = int(math.Ceil(remaining.Seconds()))
	}

	v.Mode = d.cal.Mode()
	v.WindowLen = d.cal.Len()
	v.WindowCap = d.cal.Capacity()
	for _, b := range mindwave.Bands() {
		v.Ratios[b] = d.cal.EvaluateRatio(b, float64(v.Record.EegPower.Value(b)))
	}

	v.Assessment = "off"
	if d.assess != nil {
		if st, score, ok := d.assess.State(); ok {
			v.Assessment, v.Score = st.String(), score
		} else {
			v.Assessment = "waiting"
		}
	}
	return v
}

// Lines formats a view as the dashboard text, top to bottom
func Lines(v View) []string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add("NEUROLINK  [c]onnect [d]isconnect [m]ode [q]uit")
	add("")

	switch v.State {
	case mindwave.StatePendingConnection:
		add("Trying to connect to Mindwave...")
		add("Timeouts in %ds", v.Countdown)
	case mindwave.StateConnected:
		add("Connected")
	default:
		add("Disconnected")
	}
	if v.Message != "" {
		add("! %s", v.Message)
	}
	add("")

	if v.State != mindwave.StateConnected || !v.HasRecord {
		add("Calibrator: not connected (%s, %d/%d records)", v.Mode, v.WindowLen, v.WindowCap)
		return lines
	}

	r := v.Record
	add("Status       %s", orDash(r.Status))
	add("Poor signal  %d", r.PoorSignalLevel)
	add("Attention    %3d  %s", r.ESense.Attention, Bar(r.ESense.AttentionRatio(), barWidth))
	add("Meditation   %3d  %s", r.ESense.Meditation, Bar(r.ESense.MeditationRatio(), barWidth))
	add("")
	add("Calibration  %s, %d/%d records", v.Mode, v.WindowLen, v.WindowCap)
	for _, b := range mindwave.Bands() {
		add("%-11s %9d  %s %.2f", b, r.EegPower.Value(b), Bar(v.Ratios[b], barWidth), v.Ratios[b])
	}
	add("")
	add("Raw EEG      %d", v.RawEEG)
	add("Blink        %3d  %s", v.Blink, Bar(mindwave.BlinkRatio(v.Blink), barWidth))
	if v.Assessment == "off" || v.Assessment == "waiting" {
		add("State        %s", v.Assessment)
	} else {
		add("State        %s (%.2f)", v.Assessment, v.Score)
	}
	return lines
}

// Bar renders ratio in [0,1] as a fixed-width gauge
func Bar(ratio float64, width int) string {
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Draw renders one frame
func (d *Dashboard) Draw() {
	d.screen.Clear()
	width, height := d.screen.Size()

	style := tcell.StyleDefault
	for y, line := range Lines(d.Snapshot()) {
		if y >= height {
			break
		}
		lineStyle := style
		switch {
		case y == 0:
			lineStyle = style.Bold(true)
		case strings.HasPrefix(line, "!"):
			lineStyle = style.Foreground(tcell.ColorRed)
		case line == "Connected":
			lineStyle = style.Foreground(tcell.ColorGreen)
		}
		x := 0
		for _, r := range line {
			if x >= width {
				break
			}
			d.screen.SetContent(x, y, r, nil, lineStyle)
			x++
		}
	}
	d.screen.Show()
}

// HandleEvent applies one terminal event; false means quit
func (d *Dashboard) HandleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 'c':
				d.setMessage("")
				if err := d.ctrl.Connect(ctx); err != nil {
					d.log.Printf("monitor: connect: %v", err)
					d.setMessage(err.Error())
				}
			case 'd':
				d.ctrl.Disconnect()
				d.setMessage("")
			case 'm':
				mode := d.ctrl.ToggleMode()
				d.setMessage("calibration mode " + mode.String())
			}
		}
	case *tcell.EventResize:
		d.screen.Sync()
	}
	return true
}

// Run draws and handles input until quit or ctx is done
func (d *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	d.Draw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || !d.HandleEvent(ctx, ev) {
				return
			}
			d.Draw()
		case <-ticker.C:
			d.Draw()
		}
	}
}
