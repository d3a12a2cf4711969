// Package terminal plays a puzzle in a terminal with the mouse.
//
// Pieces are drawn as colored blocks labeled with their id. Drag with the
// left button; a piece dropped close enough to its correct position snaps
// into place. Moving the mouse off the board releases the piece like a
// browser mouseleave. Keys: r resets, q or Esc quits.
package terminal
