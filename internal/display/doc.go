// Package display renders search output for terminals.
//
// Tables are written with text/tabwriter and warnings use ANSI yellow when
// color is enabled. Every function writes to an io.Writer so commands can
// be tested against a buffer.
//
//	display.WriteResults(os.Stdout, res)
//	if w, ok := display.WarnIncomplete(res); ok {
//	    w.Display(os.Stderr, true)
//	}
package display
