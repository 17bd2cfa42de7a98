package csharp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apisurface/internal/metadata"
)

func readSource(t *testing.T, src string) *fileSyntax {
	t.Helper()
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language())
	fs, err := readSyntax(context.Background(), parser, "test.cs", []byte(src), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return fs
}

func firstType(t *testing.T, src string) *typeDecl {
	t.Helper()
	fs := readSource(t, src)
	require.Empty(t, fs.syntaxErrors)
	require.NotEmpty(t, fs.types)
	return fs.types[0]
}

// member reads the single member declared in body.
func member(t *testing.T, body string) *memberDecl {
	t.Helper()
	d := firstType(t, "class C { "+body+" }")
	require.Len(t, d.members, 1)
	return d.members[0]
}

// initializer reads the initializer of a field set to x.
func initializer(t *testing.T, x string) *expr {
	t.Helper()
	m := member(t, "object f = "+x+";")
	require.Len(t, m.declarators, 1)
	require.NotNil(t, m.declarators[0].init)
	return m.declarators[0].init
}

// =============================================================================
// Literals
// =============================================================================

func TestDecodeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a\tb", decodeString(`"a\tb"`))
	assert.Equal(t, `c"d`, decodeString(`@"c""d"`))
	assert.Equal(t, "\x00\x07é", decodeString(`"\0\aé"`))
	assert.Equal(t, "bytes", decodeString(`"bytes"u8`))
	assert.Equal(t, "hello\n  world", decodeString("\"\"\"\n    hello\n      world\n    \"\"\""))
	assert.Equal(t, "one line", decodeString(`"""one line"""`))
	assert.Equal(t, 'A', decodeChar(`'A'`))
	assert.Equal(t, '\n', decodeChar(`'\n'`))
	assert.Equal(t, 'é', decodeChar(`'\x00E9'`))
}

func TestIdentName_VerbatimAndNormalized(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "class", identName("@class"))
	assert.Equal(t, "é", identName("é"))
}

// =============================================================================
// Type declarations
// =============================================================================

func TestReadType_GenericInterfaceWithConstraints(t *testing.T) {
	t.Parallel()
	d := firstType(t, "public interface IFoo<in T, out U> : IBar<T> where T : class, new() where U : struct { }")

	assert.Equal(t, declInterface, d.kind)
	assert.Equal(t, "IFoo", d.name)
	assert.True(t, d.mods.has(modPublic))
	require.Len(t, d.tparams, 2)
	assert.Equal(t, metadata.Contravariant, d.tparams[0].variance)
	assert.Equal(t, metadata.Covariant, d.tparams[1].variance)
	require.Len(t, d.bases, 1)
	assert.Equal(t, "IBar<T>", d.bases[0].String())

	require.Len(t, d.constraints, 2)
	assert.Equal(t, "T", d.constraints[0].param)
	assert.True(t, d.constraints[0].class)
	assert.True(t, d.constraints[0].constructor)
	assert.True(t, d.constraints[1].valueType)
}

func TestReadType_RecordWithPrimaryConstructor(t *testing.T) {
	t.Parallel()
	d := firstType(t, "[Serializable] public sealed record Point(int X, int Y = 2) : Shape(X), IComparable { }")

	assert.Equal(t, declRecord, d.kind)
	assert.True(t, d.mods.has(modSealed))
	assert.True(t, d.hasParams)
	require.Len(t, d.params, 2)
	assert.Equal(t, "Y", d.params[1].name)
	require.NotNil(t, d.params[1].def)
	assert.Equal(t, exprLiteral, d.params[1].def.kind)
	require.Len(t, d.bases, 2)
	assert.Equal(t, "Shape", d.bases[0].String())
	assert.Equal(t, "IComparable", d.bases[1].String())
	require.Len(t, d.attrs, 1)
	assert.Equal(t, "Serializable", d.attrs[0].name.String())
}

func TestReadType_RecordStructAndDelegate(t *testing.T) {
	t.Parallel()
	d := firstType(t, "public readonly record struct Pair(int A, int B) { }")
	assert.Equal(t, declRecordStruct, d.kind)
	assert.True(t, d.mods.has(modReadonly))
	assert.Len(t, d.params, 2)

	d = firstType(t, "public delegate TOut Converter<in TIn, out TOut>(TIn input);")
	assert.Equal(t, declDelegate, d.kind)
	assert.Equal(t, "TOut", d.ret.String())
	require.Len(t, d.tparams, 2)
	require.Len(t, d.params, 1)
	assert.Equal(t, "input", d.params[0].name)
}

func TestReadType_NestedTypesAndEnumMembers(t *testing.T) {
	t.Parallel()
	d := firstType(t, `public class Outer {
    public enum Level : byte { Low = 1, [Obsolete] High }
    private struct Hidden { }
}`)
	require.Len(t, d.nested, 2)
	e := d.nested[0]
	assert.Equal(t, declEnum, e.kind)
	require.Len(t, e.bases, 1)
	assert.Equal(t, "byte", e.bases[0].String())
	require.Len(t, e.enumMembers, 2)
	assert.Equal(t, "Low", e.enumMembers[0].name)
	require.NotNil(t, e.enumMembers[0].value)
	assert.Nil(t, e.enumMembers[1].value)
	assert.Len(t, e.enumMembers[1].attrs, 1)
	assert.True(t, d.nested[1].mods.has(modPrivate))
}

func TestReadSyntax_ReportsErrorsAnywhere(t *testing.T) {
	t.Parallel()
	fs := readSource(t, "namespace N { public class Ok { } }\n}\n")
	assert.NotEmpty(t, fs.syntaxErrors)

	fs = readSource(t, "class C { void M() { int x = ; } }")
	require.NotEmpty(t, fs.syntaxErrors, "errors inside bodies are reported too")
	assert.Equal(t, 1, fs.syntaxErrors[0].line)
	require.Len(t, fs.types, 1)
	assert.Equal(t, "C", fs.types[0].name)
}

// =============================================================================
// Members
// =============================================================================

func TestReadMember_ExtensionMethod(t *testing.T) {
	t.Parallel()
	m := member(t, "public static int Mumble<T>(this IGarble<T> garble) where T : new() => 0;")

	assert.Equal(t, memberMethod, m.kind)
	assert.Equal(t, "Mumble", m.name)
	assert.Equal(t, "int", m.typ.String())
	assert.True(t, m.mods.has(modStatic))
	assert.True(t, m.hasBody)
	require.Len(t, m.tparams, 1)
	assert.Equal(t, "T", m.tparams[0].name)
	require.Len(t, m.params, 1)
	assert.True(t, m.params[0].this)
	assert.Equal(t, "IGarble<T>", m.params[0].typ.String())
	require.Len(t, m.constraints, 1)
	assert.True(t, m.constraints[0].constructor)
}

func TestReadMember_ParameterModifiers(t *testing.T) {
	t.Parallel()
	m := member(t,
		"public void OutAndRef(int regular, out int outParam, ref int refParam, [Out] int* fakeOutParam, params string[] rest) { }")
	require.Len(t, m.params, 5)

	assert.Equal(t, "regular", m.params[0].name)
	assert.True(t, m.params[1].out)
	assert.True(t, m.params[2].ref)
	assert.Equal(t, typePointer, m.params[3].typ.kind)
	require.Len(t, m.params[3].attrs, 1)
	assert.True(t, m.params[4].params)
	assert.Equal(t, "rest", m.params[4].name)
	assert.Equal(t, typeArray, m.params[4].typ.kind)
	for i, p := range m.params {
		assert.Equal(t, i, p.position)
	}
}

func TestReadMember_IndexerAndExplicitImplementation(t *testing.T) {
	t.Parallel()
	m := member(t, "public string this[string name, int something] => name;")
	assert.Equal(t, memberIndexer, m.kind)
	assert.Equal(t, "this", m.name)
	assert.Len(t, m.params, 2)
	require.Len(t, m.accessors, 1)
	assert.Equal(t, "get", m.accessors[0].keyword)

	m = member(t, "void IDisposable.Dispose() { }")
	require.NotNil(t, m.explicit)
	assert.Equal(t, "IDisposable", m.explicit.String())
	assert.Equal(t, "Dispose", m.name)

	m = member(t, "T IEnumerator<T>.Current => default;")
	require.NotNil(t, m.explicit)
	assert.Equal(t, "IEnumerator<T>", m.explicit.String())
	assert.Equal(t, "Current", m.name)
}

func TestReadMember_PropertyAccessors(t *testing.T) {
	t.Parallel()
	m := member(t, "public int Count { get; private set; }")
	assert.Equal(t, memberProperty, m.kind)
	assert.False(t, m.hasBody)
	require.Len(t, m.accessors, 2)
	assert.Equal(t, "get", m.accessors[0].keyword)
	assert.False(t, m.accessors[0].hasBody)
	assert.Equal(t, "set", m.accessors[1].keyword)
	assert.True(t, m.accessors[1].mods.has(modPrivate))

	m = member(t, "public event EventHandler Changed { add { } remove { } }")
	assert.Equal(t, memberEvent, m.kind)
	require.Len(t, m.accessors, 2)
	assert.True(t, m.accessors[0].hasBody)
}

func TestReadMember_FieldsAndEventFields(t *testing.T) {
	t.Parallel()
	m := member(t, "public const int A = 1, B = A + 1;")
	assert.Equal(t, memberField, m.kind)
	assert.True(t, m.mods.has(modConst))
	require.Len(t, m.declarators, 2)
	assert.Equal(t, "B", m.declarators[1].name)
	assert.Equal(t, exprBinary, m.declarators[1].init.kind)

	m = member(t, "public event Action Fired;")
	assert.Equal(t, memberEventField, m.kind)
	require.Len(t, m.declarators, 1)
	assert.Nil(t, m.declarators[0].init)
}

func TestReadMember_Operators(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want string
	}{
		{"public static P operator +(P a, P b) => a;", "op_Addition"},
		{"public static P operator -(P a) => a;", "op_UnaryNegation"},
		{"public static P operator >>(P a, int n) => a;", "op_RightShift"},
		{"public static bool operator true(P a) => true;", "op_True"},
		{"public static explicit operator int(P p) => 0;", "op_Explicit"},
		{"public static implicit operator P(int v) => default;", "op_Implicit"},
	}
	for _, tt := range tests {
		m := member(t, tt.src)
		assert.Equal(t, tt.want, m.name, tt.src)
	}
}

func TestReadMember_ConstructorAndRefReturn(t *testing.T) {
	t.Parallel()
	m := member(t, "protected C(int x) { }")
	assert.Equal(t, memberConstructor, m.kind)
	assert.Equal(t, "C", m.name)
	assert.Len(t, m.params, 1)

	m = member(t, "public ref readonly int Peek() => throw null;")
	assert.True(t, m.mods.has(modRef))
	assert.Equal(t, "int", m.typ.String())
}

// =============================================================================
// Types as written
// =============================================================================

func TestReadType_ArraysTuplesAndNullables(t *testing.T) {
	t.Parallel()
	te := member(t, "int[][,] a;").typ
	require.Equal(t, typeArray, te.kind)
	assert.Equal(t, 1, te.rank, "the leftmost rank is the outermost array")
	require.Equal(t, typeArray, te.elem.kind)
	assert.Equal(t, 2, te.elem.rank)

	te = member(t, "(int X, (string, bool) Y)? b;").typ
	require.Equal(t, typeNullable, te.kind)
	require.Equal(t, typeTuple, te.elem.kind)
	assert.Equal(t, "X", te.elem.elems[0].name)
	assert.Equal(t, typeTuple, te.elem.elems[1].typ.kind)
	assert.Equal(t, []string{"X", "Y", "", ""}, tupleNames(te))

	x := initializer(t, "typeof(Dictionary<,>)")
	require.Equal(t, exprTypeof, x.kind)
	assert.Equal(t, 2, x.typ.segs[0].genericArity())
	assert.Nil(t, tupleNames(x.typ))

	te = member(t, "global::System.Int32 g;").typ
	assert.Equal(t, "global", te.alias)
	assert.Equal(t, "System.Int32", te.dotted())
}

func TestReadUsingsAndNamespaces(t *testing.T) {
	t.Parallel()
	fs := readSource(t, `global using static System.Math;
using Json = System.Text.Json;
[assembly: CLSCompliant(true)]
namespace A.B { namespace C { class X { } } }
`)
	require.Empty(t, fs.syntaxErrors)
	require.Len(t, fs.globalUsings, 1)
	u := fs.globalUsings[0]
	assert.True(t, u.global)
	assert.True(t, u.static)
	assert.Equal(t, "System.Math", u.target.dotted())

	require.Len(t, fs.root.usings, 1)
	assert.Equal(t, "Json", fs.root.usings[0].alias)
	assert.Equal(t, "System.Text.Json", fs.root.usings[0].target.dotted())

	require.Len(t, fs.assemblyAttrs, 1)
	assert.Equal(t, "CLSCompliant", fs.assemblyAttrs[0].name.String())

	require.Len(t, fs.types, 1)
	assert.Equal(t, "A.B.C", fs.types[0].scope.namespace)

	fs = readSource(t, "namespace D.E;\nusing System;\nclass Y { }\n")
	require.Len(t, fs.types, 1)
	assert.Equal(t, "D.E", fs.types[0].scope.namespace)
	assert.Len(t, fs.types[0].scope.usings, 1)
}

func TestReadAttributes_NamedAndPositionalArguments(t *testing.T) {
	t.Parallel()
	d := firstType(t, `[AttributeUsage(AttributeTargets.Class, AllowMultiple = true)]
public sealed class MarkAttribute : Attribute { }`)
	require.Len(t, d.attrs, 1)
	a := d.attrs[0]
	require.Len(t, a.args, 1)
	assert.Equal(t, exprMember, a.args[0].kind)
	require.Len(t, a.named, 1)
	assert.Equal(t, "AllowMultiple", a.named[0].name)
	assert.Equal(t, litBool, a.named[0].value.lit.kind)

	m := member(t, "[return: NotNull] public object Get() => null;")
	require.Len(t, m.attrs, 1)
	assert.Equal(t, "return", m.attrs[0].target)
}

// =============================================================================
// Expressions
// =============================================================================

func TestReadExpression_Precedence(t *testing.T) {
	t.Parallel()
	x := initializer(t, "1 + 2 * 3")
	require.Equal(t, exprBinary, x.kind)
	assert.Equal(t, "+", x.op)
	assert.Equal(t, "*", x.y.op)

	x = initializer(t, "a ?? b ?? c")
	assert.Equal(t, "a", x.x.name)
	assert.Equal(t, "??", x.y.op, "?? is right associative")

	x = initializer(t, "a >> 2 >= b")
	assert.Equal(t, ">=", x.op)
	assert.Equal(t, ">>", x.x.op)

	x = initializer(t, "a > 1 ? 1 : 2")
	assert.Equal(t, exprCond, x.kind)

	x = initializer(t, "-(1)")
	assert.Equal(t, exprUnary, x.kind)
	assert.Equal(t, "-", x.op)
	assert.Equal(t, exprLiteral, x.x.kind)
}

func TestReadExpression_Casts(t *testing.T) {
	t.Parallel()
	x := initializer(t, "(int) -1")
	assert.Equal(t, exprCast, x.kind)
	assert.Equal(t, "int", x.typ.String())

	x = initializer(t, "(Level)2")
	assert.Equal(t, exprCast, x.kind)
	assert.Equal(t, "Level", x.typ.String())
}

func TestReadExpression_PrimaryForms(t *testing.T) {
	t.Parallel()
	x := initializer(t, `new Foo(1, "a") { A = 1 }`)
	assert.Equal(t, exprNew, x.kind)
	assert.Equal(t, "init", x.op)
	assert.Len(t, x.list, 2)

	x = initializer(t, "List<int>.Empty")
	require.Equal(t, exprMember, x.kind)
	assert.Equal(t, "Empty", x.name)
	assert.Len(t, x.x.targs, 1)

	x = initializer(t, `Guid.Parse("x")`)
	assert.Equal(t, exprCall, x.kind)
	assert.Len(t, x.list, 1)

	x = initializer(t, "new[] { 1, 2 }")
	assert.Equal(t, exprArray, x.kind)

	x = initializer(t, "unchecked((uint)-1)")
	assert.Equal(t, exprChecked, x.kind)
	assert.Equal(t, "unchecked", x.op)

	x = initializer(t, "nameof(Foo.Bar)")
	require.Equal(t, exprNameof, x.kind)
	assert.Equal(t, "Bar", lastName(x.x))

	x = initializer(t, "@\"a\"\"b\"")
	assert.Equal(t, litString, x.lit.kind)
	assert.Equal(t, `a"b`, x.lit.text)

	x = initializer(t, `$"plain"`)
	assert.Equal(t, litInterpolated, x.lit.kind)
	assert.Equal(t, "plain", x.lit.text)
}

func TestReadExpression_UnsupportedFormsNeverEvaluate(t *testing.T) {
	t.Parallel()
	x := initializer(t, "y switch { _ => 1 }")
	assert.Equal(t, exprOther, x.kind)
	assert.Equal(t, "switch_expression", x.name)

	x = initializer(t, `$"x{y}"`)
	assert.Equal(t, exprOther, x.kind)

	b := &binder{}
	_, err := b.evalExpr(evalCtx{}, x)
	assert.ErrorIs(t, err, errNotConstant)
}
