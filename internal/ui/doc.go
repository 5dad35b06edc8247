// Package ui renders yeesearch output in the terminal.
//
// There are two modes:
//
//   - WatchModel is an interactive Bubble Tea view. It shows a live table of
//     every light the search has found. The table re-reads the registry once a
//     second and also updates on found events. Press r to search again and q
//     to quit.
//   - Printer writes plain output for one-shot commands and for pipes. This
//     covers a header box, a lipgloss table of lights and one line per found
//     light.
//
// IsTerminal decides which mode a command uses.
//
// # Logging Integration
//
// Logging is controlled via the YEESEARCH_LOG_LEVEL environment variable.
// When unset or empty, zap logging is silent, so the TUI owns the screen.
package ui
