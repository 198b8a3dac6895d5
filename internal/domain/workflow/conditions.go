package workflow

import (
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// compileCondition compila una condición booleana. Variables no definidas valen nil,
// así una condición sobre una clave ausente simplemente no se cumple.
func compileCondition(src string) (*vm.Program, error) {
	if src == "" {
		return nil, nil
	}
	return expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
}

// holds evalúa la condición contra la instantánea. Un programa nil siempre se cumple;
// un error en tiempo de ejecución se trata como condición no cumplida.
func holds(p *vm.Program, snapshot map[string]any) bool {
	if p == nil {
		return true
	}
	out, err := expr.Run(p, snapshot)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// missingFields devuelve las claves requeridas ausentes o con valor cero en la instantánea:
// "", 0, false, fecha o decimal cero y colecciones vacías cuentan como ausentes.
func missingFields(required []string, snapshot map[string]any) []string {
	var missing []string
	for _, f := range required {
		if isZeroValue(snapshot[f]) {
			missing = append(missing, f)
		}
	}
	return missing
}

func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	if z, ok := v.(interface{ IsZero() bool }); ok {
		return z.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return rv.IsZero()
}
