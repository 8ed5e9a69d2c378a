// Package envmap loads environment maps for the path tracer.
//
// Every file goes through image.Decode. Radiance RGBE files (.hdr, .pic)
// are decoded by github.com/mdouchement/hdr and stay in linear light.
// PNG, JPEG, GIF, TIFF, BMP and WebP are treated as sRGB and converted to
// linear light. Headers declaring more than [MaxTexels] texels are
// rejected before any pixel memory is allocated.
//
// The result is a linear RGBA32F [Image] laid out for an equirectangular
// lookup. [Loader] decodes a file and uploads it as a kernel-readable
// texture.
package envmap
