// Package scene holds the sphere scene model and its procedural builder.
//
// A [Scene] is an ordered, immutable list of spheres. [Build] generates
// the classic field-of-spheres layout: a large ground sphere first, a grid
// of small jittered spheres with randomly drawn materials, and three
// fixed feature spheres last. Everything random comes from the
// *rand.Rand passed in, so a seeded generator reproduces a scene.
//
// [Scene.Encode] produces the GPU scene buffer: one 48-byte record per
// sphere (see [RecordSize] for the layout). Scenes can also be stored as
// JSON with [Save] and read back with [Load].
package scene
