// Package engine holds the pure puzzle rules: piece generation, proximity
// placement, completion and the drag state machine.
//
// Coordinates are percentages of the puzzle container (0..100 on both axes).
// Nothing here performs I/O; DragController.Apply is a reducer from a Board
// and a normalized Event to a new Board.
package engine
