// SPDX-License-Identifier: GPL-2.0-or-later

package bsp

const (
	bspVersion = 29
	// magic numbers of the extended formats, "BSP2" and "2PSB"
	bsp2Version  = 'B' | 'S'<<8 | 'P'<<16 | '2'<<24
	bsp2rVersion = '2' | 'P'<<8 | 'S'<<16 | 'B'<<24
)

const (
	lumpEntities = iota
	lumpPlanes
	lumpTextures
	lumpVertexes
	lumpVisibility
	lumpNodes
	lumpTexinfo
	lumpFaces
	lumpLighting
	lumpClipNodes
	lumpLeafs
	lumpMarkSurfaces
	lumpEdges
	lumpSurfaceEdges
	lumpModels
	lumpCount
)

// called lump_t in c
type directory struct {
	Offset int32
	Size   int32
}

type header struct {
	Version int32
	Lumps   [lumpCount]directory
}

const headerSize = 4 + lumpCount*8

// Model, either a big zone, the level or parts inside that zone
type model struct {
	BoundingBox  [6]float32
	Origin       [3]float32
	HeadNode     [4]int32
	VisLeafCount int32 // not including the solid leaf 0
	FirstFace    int32
	FaceCount    int32
}

const modelSize = 64

// The leaf layouts only matter for their size here, every version keeps
// the visibility offset right after the contents.
type leafV0 struct {
	Type             int32 // Contents
	VisOfs           int32
	Box              [6]int16 // mins & maxs
	FirstMarkSurface uint16   // firstmarksurface
	MarkSurfaceCount uint16   // nummarksurfaces
	Ambients         [4]byte  // ambient_level
}

type leafV1 struct {
	Type             int32
	VisOfs           int32
	Box              [6]int16
	FirstMarkSurface uint32
	MarkSurfaceCount uint32
	Ambients         [4]byte
}

type leafV2 struct {
	Type             int32
	VisOfs           int32
	Box              [6]float32
	FirstMarkSurface uint32
	MarkSurfaceCount uint32
	Ambients         [4]byte
}

const visOfsOffset = 4
