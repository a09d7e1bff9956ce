// Package physics provides the pairwise force law acting between balls.
//
// The law is an inverse-square attraction that vanishes within the contact
// distance, one ball radius by default, so overlapping balls exert no force on
// each other:
//
//	law := physics.DefaultLaw()
//	f := law.Pair(r2.Vec{}, r2.Vec{X: 3, Y: 4}) // (0.096, 0.128)
//
// [Law.Force] sums the pair force over a snapshot sequence and is safe to
// call from several goroutines at once.
package physics
