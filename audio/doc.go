// Package audio synthesizes the feedback sounds of the terminal player: a
// click when a piece snaps, an arpeggio on completion and two falling notes
// on reset. Sounds are generated with oscillators, no sample files.
package audio
