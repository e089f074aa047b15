package eventhub

import (
	"fmt"
	"io"
	"iter"

	"deedles.dev/xiter"
	"github.com/charmbracelet/lipgloss"
)

var (
	dumpHeading = lipgloss.NewStyle().Bold(true)
	dumpID      = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	dumpClasses = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// devicesSeq adapts DeviceManager.Devices (already sorted by id) into
// an iter.Seq for the combinators below.
func devicesSeq(records []*DeviceRecord) iter.Seq[*DeviceRecord] {
	return func(yield func(*DeviceRecord) bool) {
		for _, rec := range records {
			if !yield(rec) {
				return
			}
		}
	}
}

func formatRecord(rec *DeviceRecord) string {
	state := "enabled"
	if !rec.Enabled {
		state = "disabled"
	}
	line := fmt.Sprintf("  %s %-24s %s [%s]",
		dumpID.Render(fmt.Sprintf("#%d", rec.ID)),
		rec.Identifier.Name,
		dumpClasses.Render(rec.Classes().String()),
		state,
	)
	if rec.ControllerNumber > 0 {
		line += fmt.Sprintf(" controller=%d", rec.ControllerNumber)
	}
	if rec.pairedVideo != nil {
		line += fmt.Sprintf(" video=%s", rec.pairedVideo.Path())
	}
	return line
}

// Dump appends a human-readable state summary to sink (§6's consumer
// surface). It folds the device list through xiter's Map/Filter
// combinators rather than a hand-rolled loop, the way a sorted,
// iterator-combinator-built listing is meant to be assembled.
func (h *Hub) Dump(sink io.Writer) error {
	h.mu.Lock()
	records := h.dm.Devices()
	unpaired := h.dm.video.List()
	builtIn := h.dm.BuiltInKeyboardID()
	h.mu.Unlock()

	enabled := xiter.Filter(devicesSeq(records), func(rec *DeviceRecord) bool { return rec.Enabled })
	lines := xiter.CollectSize(xiter.Map(enabled, formatRecord), 0)

	disabled := xiter.Filter(devicesSeq(records), func(rec *DeviceRecord) bool { return !rec.Enabled })
	disabledLines := xiter.CollectSize(xiter.Map(disabled, formatRecord), 0)

	if _, err := fmt.Fprintln(sink, dumpHeading.Render("event hub devices")); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(sink, line); err != nil {
			return err
		}
	}
	for _, line := range disabledLines {
		if _, err := fmt.Fprintln(sink, line); err != nil {
			return err
		}
	}

	if builtIn != NoBuiltInKeyboardID {
		fmt.Fprintf(sink, "built-in keyboard: external id %d\n", builtIn)
	} else {
		fmt.Fprintln(sink, "built-in keyboard: none")
	}

	if len(unpaired) > 0 {
		fmt.Fprintln(sink, dumpHeading.Render("unattached video devices"))
		for _, dev := range unpaired {
			fmt.Fprintf(sink, "  %s\n", dev.Path())
		}
	}

	return nil
}
