package signature

// DataType is the judge's language-independent classification of a
// parameter or return shape.
type DataType int

const (
	Invalid DataType = iota

	Int
	Long
	Double
	Float
	Bool
	Char
	String

	ArrayInt
	ArrayLong
	ArrayDouble
	ArrayFloat
	ArrayBool
	ArrayChar
	ArrayString

	ListInt
	ListLong
	ListDouble
	ListString

	Array2DInt
	Array2DLong
	Array2DString

	MatrixInt
	MatrixLong
	MatrixString
)

type Kind int

const (
	KindInvalid Kind = iota
	KindScalar
	KindArray
	KindList
	KindArray2D
	KindMatrix
)

type typeInfo struct {
	name string
	kind Kind
	elem DataType
}

var typeInfos = map[DataType]typeInfo{
	Int:    {"int", KindScalar, Int},
	Long:   {"long", KindScalar, Long},
	Double: {"double", KindScalar, Double},
	Float:  {"float", KindScalar, Float},
	Bool:   {"bool", KindScalar, Bool},
	Char:   {"char", KindScalar, Char},
	String: {"string", KindScalar, String},

	ArrayInt:    {"int[]", KindArray, Int},
	ArrayLong:   {"long[]", KindArray, Long},
	ArrayDouble: {"double[]", KindArray, Double},
	ArrayFloat:  {"float[]", KindArray, Float},
	ArrayBool:   {"bool[]", KindArray, Bool},
	ArrayChar:   {"char[]", KindArray, Char},
	ArrayString: {"string[]", KindArray, String},

	ListInt:    {"list<int>", KindList, Int},
	ListLong:   {"list<long>", KindList, Long},
	ListDouble: {"list<double>", KindList, Double},
	ListString: {"list<string>", KindList, String},

	Array2DInt:    {"int[][]", KindArray2D, Int},
	Array2DLong:   {"long[][]", KindArray2D, Long},
	Array2DString: {"string[][]", KindArray2D, String},

	MatrixInt:    {"list<list<int>>", KindMatrix, Int},
	MatrixLong:   {"list<list<long>>", KindMatrix, Long},
	MatrixString: {"list<list<string>>", KindMatrix, String},
}

// All lists every valid DataType in declaration order.
func All() []DataType {
	out := make([]DataType, 0, len(typeInfos))
	for t := Int; t <= MatrixString; t++ {
		out = append(out, t)
	}
	return out
}

func (t DataType) String() string {
	if info, ok := typeInfos[t]; ok {
		return info.name
	}
	return "invalid"
}

func (t DataType) Valid() bool {
	_, ok := typeInfos[t]
	return ok
}

func (t DataType) Kind() Kind {
	return typeInfos[t].kind
}

// Elem returns the scalar element type. A scalar is its own element.
func (t DataType) Elem() DataType {
	return typeInfos[t].elem
}

func (t DataType) IsScalar() bool {
	return t.Kind() == KindScalar
}

// Is2D reports whether values of t need the row-boundary parser.
func (t DataType) Is2D() bool {
	k := t.Kind()
	return k == KindArray2D || k == KindMatrix
}

func (t DataType) IsCollection() bool {
	k := t.Kind()
	return k != KindScalar && k != KindInvalid
}
