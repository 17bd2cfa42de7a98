package csharp

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jward/apisurface/internal/metadata"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const subjectsNS = "ApiSurface.Testing.Subjects."

func compileSource(t *testing.T, src string) *metadata.Library {
	t.Helper()
	libs, err := NewCompiler(WithStrict(true)).Compile(context.Background(), Unit{
		Name:  "Test",
		Files: []Source{{Path: "test.cs", Text: []byte(src)}},
	})
	require.NoError(t, err)
	require.Len(t, libs, 1)
	return libs[0]
}

var subjectsOnce = sync.OnceValues(func() (*metadata.Library, error) {
	dir := filepath.Join("..", "..", "testdata", "csharp", "subjects")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []Source
	for _, e := range entries {
		if !IsSourceFile(e.Name()) {
			continue
		}
		text, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, Source{Path: e.Name(), Text: text})
	}
	libs, err := NewCompiler(WithStrict(true)).Compile(context.Background(), Unit{Name: "Subjects", Files: files})
	if err != nil {
		return nil, err
	}
	return libs[0], nil
})

func subjects(t *testing.T) *metadata.Library {
	t.Helper()
	lib, err := subjectsOnce()
	require.NoError(t, err)
	return lib
}

func mustType(t *testing.T, lib *metadata.Library, fullName string) *metadata.Type {
	t.Helper()
	typ := lib.Lookup(fullName)
	require.NotNil(t, typ, fullName)
	return typ
}

func testField(t *testing.T, typ *metadata.Type, name string) *metadata.Field {
	t.Helper()
	for _, f := range typ.Fields {
		if f.Name == name {
			return f
		}
	}
	require.FailNow(t, "field not found", name)
	return nil
}

func testMethod(t *testing.T, typ *metadata.Type, name string) *metadata.Method {
	t.Helper()
	for _, m := range typ.Methods {
		if m.Name == name {
			return m
		}
	}
	require.FailNow(t, "method not found", name)
	return nil
}

func testProperty(t *testing.T, typ *metadata.Type, name string) *metadata.Property {
	t.Helper()
	for _, p := range typ.Properties {
		if p.Name == name {
			return p
		}
	}
	require.FailNow(t, "property not found", name)
	return nil
}

// =============================================================================
// Core library
// =============================================================================

func TestCore_SourceHasNoSyntaxErrors(t *testing.T) {
	t.Parallel()
	c := NewCompiler(WithStrict(true), WithParallelism(1))
	libs, err := c.compile(context.Background(), nil, []Unit{coreUnit()})
	require.NoError(t, err)

	core := libs[0]
	for _, name := range []string{
		"System.Object",
		"System.String",
		"System.Nullable`1",
		"System.ValueTuple`8",
		"System.Collections.Generic.List`1",
		"System.Threading.Tasks.Task`1",
		"System.Runtime.InteropServices.OutAttribute",
		"System.ComponentModel.EditorBrowsableState",
		"Microsoft.AspNetCore.Mvc.ActionNameAttribute",
	} {
		assert.NotNil(t, core.Lookup(name), name)
	}
}

func TestCore_CompiledOnce(t *testing.T) {
	t.Parallel()
	a, err := Core()
	require.NoError(t, err)
	b, err := Core()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, CoreLibraryName, a.Name)
	assert.Equal(t, "8.0.0.0", a.Version)
}

func TestCore_ConstantsAndStaticValues(t *testing.T) {
	t.Parallel()
	core, err := Core()
	require.NoError(t, err)

	assert.Equal(t, int32(math.MaxInt32), testField(t, mustType(t, core, "System.Int32"), "MaxValue").Constant)
	assert.Equal(t, int64(math.MinInt64), testField(t, mustType(t, core, "System.Int64"), "MinValue").Constant)
	assert.Equal(t, metadata.Char(0xFFFF), testField(t, mustType(t, core, "System.Char"), "MaxValue").Constant)
	assert.Equal(t, int64(864_000_000_000), testField(t, mustType(t, core, "System.TimeSpan"), "TicksPerDay").Constant)

	nan, ok := testField(t, mustType(t, core, "System.Double"), "NaN").Constant.(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(nan))

	v, err := testField(t, mustType(t, core, "System.String"), "Empty").Value()
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = testField(t, mustType(t, core, "System.Guid"), "Empty").Value()
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", metadata.FormatValue(v))

	v, err = testField(t, mustType(t, core, "System.TimeSpan"), "MaxValue").Value()
	require.NoError(t, err)
	assert.Equal(t, "10675199.02:48:05.4775807", metadata.FormatValue(v))
}

func TestCore_IndexerNameAttribute(t *testing.T) {
	t.Parallel()
	core, err := Core()
	require.NoError(t, err)
	chars := testProperty(t, mustType(t, core, "System.String"), "Chars")
	require.NotNil(t, chars.Getter)
	assert.Equal(t, "get_Chars", chars.Getter.Name)
	assert.Len(t, chars.Params, 1)
	assert.Empty(t, chars.Attributes, "IndexerName is not emitted")
}

func TestCompile_IndexerNameIsNotAnAttribute(t *testing.T) {
	t.Parallel()
	lib := compileSource(t, `using System;
using System.Runtime.CompilerServices;
namespace N {
    public class Grid {
        [IndexerName("Cell")]
        [Obsolete]
        public int this[int row, int column] => row * column;
    }
}`)
	cell := testProperty(t, mustType(t, lib, "N.Grid"), "Cell")
	require.NotNil(t, cell.Getter)
	assert.Equal(t, "get_Cell", cell.Getter.Name)
	require.Len(t, cell.Attributes, 1)
	assert.Equal(t, "System.ObsoleteAttribute", cell.Attributes[0].Type.FullName())
}

// =============================================================================
// Syntax errors
// =============================================================================

func TestCompile_SyntaxErrorsFailOnlyWhenStrict(t *testing.T) {
	t.Parallel()
	src := []byte("namespace N { public class Ok { } }\n}\n")
	unit := Unit{Name: "Broken", Files: []Source{{Path: "broken.cs", Text: src}}}

	_, err := NewCompiler(WithStrict(true)).Compile(context.Background(), unit)
	require.Error(t, err)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "broken.cs", se.Path)

	libs, err := NewCompiler().Compile(context.Background(), unit)
	require.NoError(t, err)
	assert.NotNil(t, libs[0].Lookup("N.Ok"))

	unit.Strict = true
	_, err = NewCompiler().Compile(context.Background(), unit)
	require.ErrorAs(t, err, &se)
}

func TestCompile_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCompiler().Compile(ctx, Unit{Name: "X", Files: []Source{{Path: "x.cs", Text: []byte("class A { }")}}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsSourceFile(t *testing.T) {
	t.Parallel()
	assert.True(t, IsSourceFile("a/b/Foo.cs"))
	assert.True(t, IsSourceFile(`C:\src\Foo.CS`))
	assert.False(t, IsSourceFile("Foo.csproj"))
	assert.False(t, IsSourceFile("cs"))
}

// =============================================================================
// Declarations
// =============================================================================

func TestCompile_LibraryVersionFromAssemblyAttributes(t *testing.T) {
	t.Parallel()
	lib := subjects(t)
	assert.Equal(t, "2.3.0.0", lib.Version)
	assert.Equal(t, "2.3.4.5", lib.FileVersion)
	require.NotEmpty(t, lib.Attributes)
}

func TestCompile_VersionDefaultsWithoutAttributes(t *testing.T) {
	t.Parallel()
	lib := compileSource(t, "namespace N { public class A { } }")
	assert.Equal(t, metadata.DefaultVersion, lib.Version)
	assert.Equal(t, metadata.DefaultVersion, lib.FileVersion)
}

func TestCompile_DefaultConstructorOnlyWithoutExplicitOne(t *testing.T) {
	t.Parallel()
	lib := subjects(t)

	foo := mustType(t, lib, subjectsNS+"Foo")
	require.Len(t, foo.Constructors, 1)
	assert.Equal(t, metadata.AccessPrivate, foo.Constructors[0].Access)

	shape := mustType(t, lib, subjectsNS+"Shape")
	require.Len(t, shape.Constructors, 1)
	assert.Equal(t, metadata.AccessFamily, shape.Constructors[0].Access, "abstract classes get a protected constructor")

	limits := mustType(t, lib, subjectsNS+"Limits")
	assert.Empty(t, limits.Constructors, "static classes have no instance constructor")
}

func TestCompile_NestedTypeVisibility(t *testing.T) {
	t.Parallel()
	lib := subjects(t)
	for _, name := range []string{
		"PublicClass+PublicNestedOfPublic",
		"PublicClass+PublicNestedOfPublic+PublicNestedOfPublicNestedOfPublic",
		"PublicClass+ProtectedNestedOfPublic",
		"PublicClass+ProtectedNestedOfPublic+ProtectedNestedOfProtectedNestedOfPublic",
	} {
		assert.True(t, mustType(t, lib, subjectsNS+name).IsPubliclyVisible(), name)
	}
	for _, name := range []string{
		"PublicClass+PublicNestedOfPublic+InternalNestedOfPublicNestedOfPublic",
		"PublicClass+PrivateProtectedNestedOfPublic",
		"InternalClass+PublicNestedOfInternal",
		"InternalClass+ProtectedNestedOfInternal+PublicNestedOfProtectedNestedOfInternal",
	} {
		assert.False(t, mustType(t, lib, subjectsNS+name).IsPubliclyVisible(), name)
	}
}

func TestCompile_MemberAccessAndFlags(t *testing.T) {
	t.Parallel()
	lib := subjects(t)
	base := mustType(t, lib, subjectsNS+"Base")
	derived := mustType(t, lib, subjectsNS+"Derived")

	p1 := testProperty(t, base, "P1")
	assert.Equal(t, metadata.AccessPublic, p1.Getter.Access)
	assert.Equal(t, metadata.AccessFamANDAssem, p1.Setter.Access)

	m2 := testMethod(t, derived, "M2")
	assert.Equal(t, metadata.AccessFamily, m2.Access)
	assert.False(t, m2.IsVirtual())

	sealed := testMethod(t, derived, "VirtualMethod")
	assert.True(t, sealed.IsVirtual())
	assert.True(t, sealed.IsFinal())
	assert.True(t, sealed.ReusesSlot())

	hidden := testMethod(t, derived, "VirtualHiddenAsVirtual")
	assert.True(t, hidden.IsVirtual())
	assert.False(t, hidden.ReusesSlot())

	impl := testMethod(t, base, "PublicMethodDeclaredOnInternalInterface")
	assert.True(t, impl.Has(metadata.MethodVirtual|metadata.MethodFinal|metadata.MethodNewSlot),
		"implicit interface implementations are virtual, final and new-slot")

	async := testMethod(t, mustType(t, lib, subjectsNS+"Foo"), "DoSomethingAsync")
	assert.True(t, async.HasAttribute("System.Runtime.CompilerServices.AsyncStateMachineAttribute"))

	ext := testMethod(t, mustType(t, lib, subjectsNS+"IGarbleTExtensions"), "Mumble")
	assert.True(t, ext.IsStatic())
	assert.True(t, ext.HasAttribute("System.Runtime.CompilerServices.ExtensionAttribute"))
}

func TestCompile_ExplicitInterfaceImplementation(t *testing.T) {
	t.Parallel()
	d := mustType(t, subjects(t), subjectsNS+"Disposer")
	m := testMethod(t, d, "System.IDisposable.Dispose")
	assert.Equal(t, metadata.AccessPrivate, m.Access)
	require.NotNil(t, m.ExplicitInterface)
	assert.Equal(t, "System.IDisposable", m.ExplicitInterface.FullName())
	assert.Equal(t, "Dispose", m.ExplicitName)
}

func TestCompile_ParameterDirectionsAndDefaults(t *testing.T) {
	t.Parallel()
	foo := mustType(t, subjects(t), subjectsNS+"Foo")

	m := testMethod(t, foo, "OutAndRef")
	require.Len(t, m.Params, 4)
	assert.True(t, m.Params[1].Type.IsByRef())
	assert.True(t, m.Params[1].Out)
	assert.True(t, m.Params[2].Type.IsByRef())
	assert.False(t, m.Params[2].Out)
	assert.True(t, m.Params[3].Type.IsPointer())
	assert.True(t, m.Params[3].Out, "[Out] becomes a parameter flag")

	m = testMethod(t, foo, "MethodWithDefaultParamValues")
	require.Len(t, m.Params, 5)
	assert.Equal(t, int32(5), m.Params[0].Default)
	assert.Equal(t, "s123", m.Params[1].Default)
	assert.Equal(t, int32(1), m.Params[2].Default)
	assert.Equal(t, true, m.Params[3].Default)
	assert.True(t, m.Params[4].Optional)
	assert.False(t, m.Params[4].HasDefault, "default(DateTime) has no constant")
}

func TestCompile_Delegates(t *testing.T) {
	t.Parallel()
	notify := mustType(t, subjects(t), subjectsNS+"Notify")
	assert.True(t, notify.IsDelegate())
	assert.Equal(t, "System.MulticastDelegate", notify.BaseType.FullName())

	invoke := testMethod(t, notify, "Invoke")
	require.Len(t, invoke.Params, 1)
	assert.Equal(t, "message", invoke.Params[0].Name)

	begin := testMethod(t, notify, "BeginInvoke")
	assert.Len(t, begin.Params, 3)
	assert.Equal(t, "System.IAsyncResult", begin.ReturnType().FullName())
	testMethod(t, notify, "EndInvoke")
	require.Len(t, notify.Constructors, 1)
	assert.Len(t, notify.Constructors[0].Params, 2)
}

func TestCompile_Records(t *testing.T) {
	t.Parallel()
	point := mustType(t, subjects(t), subjectsNS+"Point")

	x := testProperty(t, point, "X")
	require.NotNil(t, x.Getter)
	require.NotNil(t, x.Setter)
	assert.Equal(t, "System.Int32", x.Type.FullName())

	deconstruct := testMethod(t, point, "Deconstruct")
	require.Len(t, deconstruct.Params, 2)
	assert.True(t, deconstruct.Params[0].Out)

	var equatable bool
	for _, i := range point.Interfaces {
		equatable = equatable || i.Def().FullName() == "System.IEquatable`1"
	}
	assert.True(t, equatable)

	var primary bool
	for _, c := range point.Constructors {
		primary = primary || c.Access == metadata.AccessPublic && len(c.Params) == 2
	}
	assert.True(t, primary)
}

func TestCompile_RecordContractMembers(t *testing.T) {
	t.Parallel()
	lib := compileSource(t, `namespace N {
    public record Shape(string Name);
    public sealed record Circle(string Name, double R) : Shape(Name);
    public sealed record Leaf(int V);
    public record struct Pair(int A, int B);
}`)
	contract := func(typ *metadata.Type) (*metadata.Method, *metadata.Method) {
		t.Helper()
		return testProperty(t, typ, "EqualityContract").Getter, testMethod(t, typ, "PrintMembers")
	}

	get, printer := contract(mustType(t, lib, "N.Shape"))
	require.NotNil(t, get)
	assert.Equal(t, metadata.AccessFamily, get.Access)
	assert.True(t, get.IsVirtual())
	assert.False(t, get.ReusesSlot())
	assert.Equal(t, "System.Type", get.ReturnType().FullName())
	assert.Equal(t, metadata.AccessFamily, printer.Access)
	assert.True(t, printer.IsVirtual())
	require.Len(t, printer.Params, 1)
	assert.Equal(t, "System.Text.StringBuilder", printer.Params[0].Type.FullName())
	assert.Equal(t, "System.Boolean", printer.ReturnType().FullName())

	get, printer = contract(mustType(t, lib, "N.Circle"))
	assert.Equal(t, metadata.AccessFamily, get.Access)
	assert.True(t, get.ReusesSlot(), "a derived record overrides the contract")
	assert.True(t, printer.ReusesSlot())
	assert.True(t, printer.IsFinal())

	get, printer = contract(mustType(t, lib, "N.Leaf"))
	assert.Equal(t, metadata.AccessPrivate, get.Access)
	assert.False(t, get.IsVirtual())
	assert.Equal(t, metadata.AccessPrivate, printer.Access)

	pair := mustType(t, lib, "N.Pair")
	for _, p := range pair.Properties {
		assert.NotEqual(t, "EqualityContract", p.Name, "record structs have no contract")
	}
	assert.Equal(t, metadata.AccessPrivate, testMethod(t, pair, "PrintMembers").Access)
}

func TestCompile_Enums(t *testing.T) {
	t.Parallel()
	lib := subjects(t)

	perms := mustType(t, lib, subjectsNS+"Permissions")
	assert.Equal(t, "System.Byte", perms.EnumUnderlying.FullName())
	assert.True(t, perms.HasAttribute("System.FlagsAttribute"))
	assert.True(t, testField(t, perms, "value__").IsSpecialName())
	assert.Equal(t, uint8(1), testField(t, perms, "Read").Constant)
	assert.Equal(t, uint8(2), testField(t, perms, "Write").Constant)
	assert.Equal(t, uint8(3), testField(t, perms, "ReadWrite").Constant)

	level := mustType(t, lib, subjectsNS+"Level")
	assert.Equal(t, int32(-1), testField(t, level, "Low").Constant)
	assert.Equal(t, int32(0), testField(t, level, "Medium").Constant)
	assert.Equal(t, int32(10), testField(t, level, "High").Constant)
}
