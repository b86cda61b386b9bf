package signature

import (
	"regexp"
)

var Java = &Parser{
	language: "java",
	style:    TrailingName,
	decls: []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|static|final|synchronized|abstract)\s+)*` +
			`(?P<ret>[\w.$]+(?:\s*<[\w<>\[\],.?\s]*>)?(?:\s*\[\s*\])*)\s+(?P<name>\w+)\s*` +
			`\((?P<params>[^)]*)\)\s*(?:throws\s+[\w.,\s]+)?\{`),
	},
	types: javaTypes(),
	voids: map[string]bool{"void": true},
	// Every Java entry point is an instance method of Solution.
	method: true,
	reserved: map[string]bool{
		"public": true, "private": true, "protected": true, "static": true,
		"return": true, "new": true, "else": true, "if": true, "for": true,
		"while": true, "switch": true, "catch": true, "throw": true, "class": true,
	},
	modifiers: map[string]bool{"final": true},
}

var Python = &Parser{
	language: "python",
	style:    LeadingName,
	decls: []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*(?:async\s+)?def\s+(?P<name>\w+)\s*\((?P<params>[^)]*)\)\s*` +
			`(?:->\s*(?P<ret>[^:]+?))?\s*:`),
	},
	types:    pythonTypes(),
	voids:    map[string]bool{"": true, "None": true},
	receiver: "self",
	reserved: map[string]bool{"__init__": true},
}

var JavaScript = &Parser{
	language: "javascript",
	style:    LeadingName,
	decls: []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*(?:export\s+)?(?:async\s+)?function\s*(?P<name>\w+)\s*` +
			`\((?P<params>[^)]*)\)\s*(?::\s*(?P<ret>[^{]+?))?\s*\{`),
		regexp.MustCompile(`(?m)^[ \t]*(?:export\s+)?(?:var|let|const)\s+(?P<name>\w+)\s*=\s*(?:async\s+)?` +
			`function\s*\w*\s*\((?P<params>[^)]*)\)\s*(?::\s*(?P<ret>[^{]+?))?\s*\{`),
		regexp.MustCompile(`(?m)^[ \t]*(?:export\s+)?(?:var|let|const)\s+(?P<name>\w+)\s*=\s*(?:async\s+)?` +
			`\((?P<params>[^)]*)\)\s*(?::\s*(?P<ret>[^=]+?))?\s*=>`),
	},
	types:       javascriptTypes(),
	voids:       map[string]bool{"": true, "void": true, "undefined": true},
	docComments: true,
}

// Parsers is keyed by language id.
var Parsers = map[string]*Parser{
	Java.language:       Java,
	Python.language:     Python,
	JavaScript.language: JavaScript,
}

func javaTypes() map[string]DataType {
	t := map[string]DataType{
		"int": Int, "Integer": Int,
		"long": Long, "Long": Long,
		"double": Double, "Double": Double,
		"float": Float, "Float": Float,
		"boolean": Bool, "Boolean": Bool,
		"char": Char, "Character": Char,
		"String": String,

		"int[]":     ArrayInt,
		"long[]":    ArrayLong,
		"double[]":  ArrayDouble,
		"float[]":   ArrayFloat,
		"boolean[]": ArrayBool,
		"char[]":    ArrayChar,
		"String[]":  ArrayString,

		"int[][]":    Array2DInt,
		"long[][]":   Array2DLong,
		"String[][]": Array2DString,
	}
	lists := map[string]DataType{
		"Integer": ListInt,
		"Long":    ListLong,
		"Double":  ListDouble,
		"String":  ListString,
	}
	for elem, dt := range lists {
		t["List<"+elem+">"] = dt
		t["ArrayList<"+elem+">"] = dt
	}
	matrices := map[string]DataType{
		"Integer": MatrixInt,
		"Long":    MatrixLong,
		"String":  MatrixString,
	}
	for elem, dt := range matrices {
		t["List<List<"+elem+">>"] = dt
	}
	return t
}

func pythonTypes() map[string]DataType {
	t := map[string]DataType{
		"int":   Int,
		"float": Double,
		"bool":  Bool,
		"str":   String,
	}
	for _, list := range []string{"List", "list"} {
		t[list+"[int]"] = ListInt
		t[list+"[float]"] = ListDouble
		t[list+"[bool]"] = ArrayBool
		t[list+"[str]"] = ListString
		for _, inner := range []string{"List", "list"} {
			t[list+"["+inner+"[int]]"] = MatrixInt
			t[list+"["+inner+"[str]]"] = MatrixString
		}
	}
	return t
}

func javascriptTypes() map[string]DataType {
	t := map[string]DataType{
		"number":  Int,
		"bigint":  Long,
		"boolean": Bool,
		"string":  String,
	}
	arrays := map[string]DataType{
		"number":  ArrayInt,
		"bigint":  ArrayLong,
		"boolean": ArrayBool,
		"string":  ArrayString,
	}
	for elem, dt := range arrays {
		t[elem+"[]"] = dt
		t["Array<"+elem+">"] = dt
	}
	grids := map[string]DataType{
		"number": Array2DInt,
		"bigint": Array2DLong,
		"string": Array2DString,
	}
	for elem, dt := range grids {
		t[elem+"[][]"] = dt
		t["Array<Array<"+elem+">>"] = dt
	}
	return t
}
