// Package geometry holds the pure 2D math the canvas is built on: points,
// axis-aligned boxes, affine matrices and segment distance.
package geometry
