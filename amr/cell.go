package amr

// Handle identifies a cell inside the mesh arena. Handles stay valid across
// splits; a merge retires the child block behind the handles, after which
// they must not be dereferenced (Cell.Retired reports this).
type Handle = int32

// NilHandle marks the absence of a cell (no parent, no children).
const NilHandle Handle = -1

// Direction identifies one face of a cell. Right/Left move along x,
// Up/Down along y, Front/Back along z (3D only).
type Direction int

const (
	DirRight Direction = iota
	DirLeft
	DirUp
	DirDown
	DirFront
	DirBack
)

var directionNames = [...]string{"right", "left", "up", "down", "front", "back"}

func (d Direction) String() string { return directionNames[d] }

// Axis returns the coordinate axis the direction moves along (0=x, 1=y, 2=z).
func (d Direction) Axis() int { return int(d) / 2 }

// Sign returns +1 for the positive face of the axis, -1 for the negative one.
func (d Direction) Sign() int32 {
	if d%2 == 0 {
		return 1
	}
	return -1
}

// Opposite returns the mirrored direction (Right<->Left etc).
func (d Direction) Opposite() Direction { return d ^ 1 }

// Directions lists the face directions of a cell for the given
// dimensionality: four in 2D, six in 3D.
func Directions(dims int) []Direction {
	if dims == 3 {
		return []Direction{DirRight, DirLeft, DirUp, DirDown, DirFront, DirBack}
	}
	return []Direction{DirRight, DirLeft, DirUp, DirDown}
}

// Cell is one node of the mesh tree, stored in the arena. A cell is a leaf
// iff Child == NilHandle; internal cells carry the contiguous block of
// 4 (2D) or 8 (3D) children starting at Child. Only leaves hold an
// authoritative field value; an internal cell's Value is the conservative
// mean of its children, refreshed on split and merge.
//
// X, Y, Z are integer grid coordinates at the cell's own level: a cell at
// level L covers [X/2^L, (X+1)/2^L) of the domain along x, and likewise for
// the other axes. Child coordinates are 2*parent + offset, so the cell's
// bounding box never needs to be stored.
type Cell struct {
	Level   int32
	X, Y, Z int32
	Parent  Handle
	Child   Handle
	Value   float64
	Retired bool
}

// IsLeaf reports whether the cell currently has no children.
func (c *Cell) IsLeaf() bool { return c.Child == NilHandle }

// childOffset returns the local offset (0..3 in 2D, 0..7 in 3D) of child i:
// bit 0 is the x half, bit 1 the y half, bit 2 the z half.
func childOffset(i int) (dx, dy, dz int32) {
	return int32(i & 1), int32(i >> 1 & 1), int32(i >> 2 & 1)
}
