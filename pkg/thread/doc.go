// Package thread turns thread annotations on cylindrical and conical faces
// into modeled solid geometry.
//
// For each feature a template sketch is inserted on the thread axis, its
// tagged parameters are bound to the thread's pitch and radii, a boundary
// body is revolved around the axis and a coil sweeps the template profile
// through it. Each feature runs in its own kernel transaction and is
// rolled back completely when any step fails.
package thread
