// Package workflow modela el grafo configurable de etapas y transiciones del flujo de aprobación.
// Un Graph es una instantánea inmutable y validada de la configuración; los administradores
// construyen uno nuevo en cada cambio y los registros en curso solo lo leen.
package workflow

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr/vm"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

type compiledTransition struct {
	entity.WorkflowTransition
	program *vm.Program
}

type transitionKey struct {
	from   string
	action entity.Action
}

// Graph etapas y transiciones activas indexadas por (etapa origen, acción).
type Graph struct {
	stages      map[string]*entity.WorkflowStage
	byCode      map[string]*entity.WorkflowStage
	order       []*entity.WorkflowStage
	byKey       map[transitionKey][]*compiledTransition
	transitions []entity.WorkflowTransition
}

// Resolution resultado de resolver una transición.
type Resolution struct {
	Transition entity.WorkflowTransition
	From       *entity.WorkflowStage
	To         *entity.WorkflowStage
}

// NewGraph valida la configuración y compila las condiciones.
// Devuelve domain.ErrInvalidInput (con el detalle en Params) si se rompe algún invariante.
func NewGraph(stages []entity.WorkflowStage, transitions []entity.WorkflowTransition) (*Graph, error) {
	g := &Graph{
		stages: make(map[string]*entity.WorkflowStage, len(stages)),
		byCode: make(map[string]*entity.WorkflowStage, len(stages)),
		byKey:  make(map[transitionKey][]*compiledTransition),
	}
	for i := range stages {
		s := stages[i]
		if s.ID == "" || s.Code == "" {
			return nil, invalidConfig("la etapa requiere id y código", map[string]any{"stage_id": s.ID, "code": s.Code})
		}
		if _, dup := g.stages[s.ID]; dup {
			return nil, invalidConfig("id de etapa duplicado", map[string]any{"stage_id": s.ID})
		}
		if _, dup := g.byCode[s.Code]; dup {
			return nil, invalidConfig("código de etapa duplicado", map[string]any{"code": s.Code})
		}
		for _, a := range s.AllowedActions {
			if !a.IsValid() {
				return nil, invalidConfig("acción desconocida", map[string]any{"stage_id": s.ID, "action": string(a)})
			}
		}
		g.stages[s.ID] = &s
		g.byCode[s.Code] = &s
		g.order = append(g.order, &s)
	}
	sort.SliceStable(g.order, func(i, j int) bool { return g.order[i].Sequence < g.order[j].Sequence })

	for _, s := range g.order {
		for _, next := range s.NextStages {
			target, ok := g.stages[next]
			if !ok {
				return nil, invalidConfig("etapa siguiente inexistente", map[string]any{"stage_id": s.ID, "next_stage_id": next})
			}
			if target.Sequence <= s.Sequence {
				return nil, invalidConfig("la etapa siguiente debe tener secuencia mayor; use return_stages para reprocesos",
					map[string]any{"stage_id": s.ID, "next_stage_id": next})
			}
		}
		for _, back := range s.ReturnStages {
			if _, ok := g.stages[back]; !ok {
				return nil, invalidConfig("etapa de retorno inexistente", map[string]any{"stage_id": s.ID, "return_stage_id": back})
			}
		}
	}

	for _, t := range transitions {
		if !t.IsActive {
			g.transitions = append(g.transitions, t)
			continue
		}
		from, ok := g.stages[t.FromStageID]
		if !ok {
			return nil, invalidConfig("etapa origen inexistente", map[string]any{"transition_id": t.ID, "from_stage_id": t.FromStageID})
		}
		if _, ok := g.stages[t.ToStageID]; !ok {
			return nil, invalidConfig("etapa destino inexistente", map[string]any{"transition_id": t.ID, "to_stage_id": t.ToStageID})
		}
		if !from.Allows(t.Action) {
			return nil, invalidConfig("la etapa origen no permite la acción", map[string]any{"transition_id": t.ID, "action": string(t.Action)})
		}
		if !from.Leads(t.ToStageID) {
			return nil, invalidConfig("destino fuera de next_stages/return_stages", map[string]any{"transition_id": t.ID, "to_stage_id": t.ToStageID})
		}
		program, err := compileCondition(t.Conditions)
		if err != nil {
			return nil, invalidConfig(fmt.Sprintf("condición inválida: %v", err), map[string]any{"transition_id": t.ID})
		}
		key := transitionKey{from: t.FromStageID, action: t.Action}
		g.byKey[key] = append(g.byKey[key], &compiledTransition{WorkflowTransition: t, program: program})
		g.transitions = append(g.transitions, t)
	}

	for key, group := range g.byKey {
		if len(group) < 2 {
			continue
		}
		seen := make(map[string]bool, len(group))
		for _, ct := range group {
			if ct.Conditions == "" || seen[ct.Conditions] {
				return nil, invalidConfig("transición no determinista para (etapa, acción)",
					map[string]any{"from_stage_id": key.from, "action": string(key.action)})
			}
			seen[ct.Conditions] = true
		}
	}
	return g, nil
}

func invalidConfig(msg string, params map[string]any) error {
	return domain.NewError(domain.ErrInvalidInput, msg, params)
}

// Stage devuelve la etapa por ID.
func (g *Graph) Stage(id string) (*entity.WorkflowStage, bool) {
	s, ok := g.stages[id]
	return s, ok
}

// StageByCode devuelve la etapa por código.
func (g *Graph) StageByCode(code string) (*entity.WorkflowStage, bool) {
	s, ok := g.byCode[code]
	return s, ok
}

// Stages devuelve las etapas ordenadas por secuencia.
func (g *Graph) Stages() []entity.WorkflowStage {
	out := make([]entity.WorkflowStage, 0, len(g.order))
	for _, s := range g.order {
		out = append(out, *s)
	}
	return out
}

// Transitions devuelve todas las transiciones (activas e inactivas).
func (g *Graph) Transitions() []entity.WorkflowTransition {
	return append([]entity.WorkflowTransition(nil), g.transitions...)
}

// InitialStage etapa activa de menor secuencia para el tipo de documento.
func (g *Graph) InitialStage(documentType string) (*entity.WorkflowStage, bool) {
	for _, s := range g.order {
		if s.IsActive && s.DocumentType == documentType {
			return s, true
		}
	}
	return nil, false
}

// ResolveTransition busca la única transición activa para (fromStage, action) cuyas condiciones
// se cumplen con snapshot. Sin coincidencia devuelve ErrNoSuchTransition; si coinciden varias,
// o faltan campos requeridos, devuelve ErrInvalidTransition.
func (g *Graph) ResolveTransition(fromStageID string, action entity.Action, snapshot map[string]any) (*Resolution, error) {
	params := map[string]any{"stage_id": fromStageID, "action": string(action)}
	from, ok := g.stages[fromStageID]
	if !ok || !from.IsActive {
		return nil, domain.NewError(domain.ErrNoSuchTransition, "etapa inexistente o inactiva", params)
	}
	if !from.Allows(action) {
		return nil, domain.NewError(domain.ErrNoSuchTransition, "la etapa no permite la acción", params)
	}
	var matched []*compiledTransition
	for _, ct := range g.byKey[transitionKey{from: fromStageID, action: action}] {
		to := g.stages[ct.ToStageID]
		if !to.IsActive {
			continue
		}
		if holds(ct.program, snapshot) {
			matched = append(matched, ct)
		}
	}
	switch len(matched) {
	case 0:
		return nil, domain.NewError(domain.ErrNoSuchTransition, "", params)
	case 1:
	default:
		return nil, domain.NewError(domain.ErrInvalidTransition, "más de una transición cumple sus condiciones", params)
	}
	ct := matched[0]
	if missing := missingFields(ct.RequiredFields, snapshot); len(missing) > 0 {
		params["missing_fields"] = missing
		params["transition_id"] = ct.ID
		return nil, domain.NewError(domain.ErrInvalidTransition, "faltan campos requeridos", params)
	}
	return &Resolution{Transition: ct.WorkflowTransition, From: from, To: g.stages[ct.ToStageID]}, nil
}

// AutoCandidates transiciones automáticas desde la etapa cuyos campos requeridos están
// presentes y cuyas condiciones se cumplen, en orden de configuración.
func (g *Graph) AutoCandidates(fromStageID string, snapshot map[string]any) []Resolution {
	from, ok := g.stages[fromStageID]
	if !ok || !from.IsActive {
		return nil
	}
	var out []Resolution
	for _, a := range from.AllowedActions {
		for _, ct := range g.byKey[transitionKey{from: fromStageID, action: a}] {
			if !ct.AutoTransition {
				continue
			}
			to := g.stages[ct.ToStageID]
			if !to.IsActive || len(missingFields(ct.RequiredFields, snapshot)) > 0 || !holds(ct.program, snapshot) {
				continue
			}
			out = append(out, Resolution{Transition: ct.WorkflowTransition, From: from, To: to})
		}
	}
	return out
}
