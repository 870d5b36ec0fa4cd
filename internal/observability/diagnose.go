package observability

import (
	"fmt"
	"io"
	"runtime"
	"time"
)

var startTime = time.Now()

// Diagnostics accumulates labeled sections for the --diagnose report.
// Callers add their own sections (config, tools, history); the runtime
// section comes for free.
type Diagnostics struct {
	sections []*Section
}

type Section struct {
	Title string
	rows  []row
}

type row struct {
	key   string
	value string
}

func NewDiagnostics() *Diagnostics {
	d := &Diagnostics{}
	rt := d.Section("runtime")
	rt.Add("go", runtime.Version())
	rt.Add("platform", runtime.GOOS+"/"+runtime.GOARCH)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	rt.Add("memory", fmt.Sprintf("%.1f MB", float64(m.Alloc)/1024/1024))
	rt.Add("uptime", time.Since(startTime).Round(time.Millisecond).String())
	return d
}

func (d *Diagnostics) Section(title string) *Section {
	s := &Section{Title: title}
	d.sections = append(d.sections, s)
	return s
}

func (s *Section) Add(key, value string) {
	s.rows = append(s.rows, row{key: key, value: value})
}

func (d *Diagnostics) Render(w io.Writer) {
	for _, s := range d.sections {
		fmt.Fprintf(w, "%s%s%s\n", colorBold, s.Title, colorReset)
		for _, r := range s.rows {
			fmt.Fprintf(w, "  %-16s %s\n", r.key, r.value)
		}
		fmt.Fprintln(w)
	}
}
