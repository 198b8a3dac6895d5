// Package workflowconfig lee la configuración semilla de etapas y transiciones desde YAML.
package workflowconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
)

// File estructura del archivo YAML.
type File struct {
	Stages      []Stage      `yaml:"stages"`
	Transitions []Transition `yaml:"transitions"`
}

// Stage etapa en YAML. code se deriva del nombre si se omite; active por defecto true.
type Stage struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	Code                string   `yaml:"code"`
	DocumentType        string   `yaml:"document_type"`
	Sequence            int      `yaml:"sequence"`
	AllowedActions      []string `yaml:"allowed_actions"`
	RequiredPermissions []string `yaml:"required_permissions"`
	NextStages          []string `yaml:"next_stages"`
	ReturnStages        []string `yaml:"return_stages"`
	Active              *bool    `yaml:"active"`
}

// Transition transición en YAML.
type Transition struct {
	ID             string   `yaml:"id"`
	From           string   `yaml:"from"`
	To             string   `yaml:"to"`
	Action         string   `yaml:"action"`
	Conditions     string   `yaml:"conditions"`
	Auto           bool     `yaml:"auto"`
	RequiredFields []string `yaml:"required_fields"`
	Active         *bool    `yaml:"active"`
}

// Load lee y valida el archivo.
func Load(path string) ([]entity.WorkflowStage, []entity.WorkflowTransition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read workflow seed: %w", err)
	}
	return Parse(data)
}

// Parse decodifica el YAML y valida que forme un grafo correcto.
func Parse(data []byte) ([]entity.WorkflowStage, []entity.WorkflowTransition, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse workflow seed: %w", err)
	}
	stages := make([]entity.WorkflowStage, 0, len(f.Stages))
	for _, s := range f.Stages {
		code := s.Code
		if code == "" {
			code = workflow.NormalizeCode(s.Name)
		}
		stages = append(stages, entity.WorkflowStage{
			ID:                  s.ID,
			Name:                s.Name,
			Code:                code,
			DocumentType:        s.DocumentType,
			Sequence:            s.Sequence,
			AllowedActions:      toActions(s.AllowedActions),
			RequiredPermissions: toPermissions(s.RequiredPermissions),
			NextStages:          s.NextStages,
			ReturnStages:        s.ReturnStages,
			IsActive:            active(s.Active),
		})
	}
	transitions := make([]entity.WorkflowTransition, 0, len(f.Transitions))
	for _, t := range f.Transitions {
		transitions = append(transitions, entity.WorkflowTransition{
			ID:             t.ID,
			FromStageID:    t.From,
			ToStageID:      t.To,
			Action:         entity.Action(t.Action),
			Conditions:     t.Conditions,
			AutoTransition: t.Auto,
			RequiredFields: t.RequiredFields,
			IsActive:       active(t.Active),
		})
	}
	if _, err := workflow.NewGraph(stages, transitions); err != nil {
		return nil, nil, fmt.Errorf("workflow seed: %w", err)
	}
	return stages, transitions, nil
}

func active(b *bool) bool {
	return b == nil || *b
}

func toActions(in []string) []entity.Action {
	out := make([]entity.Action, 0, len(in))
	for _, a := range in {
		out = append(out, entity.Action(a))
	}
	return out
}

func toPermissions(in []string) []entity.Permission {
	out := make([]entity.Permission, 0, len(in))
	for _, p := range in {
		out = append(out, entity.Permission(p))
	}
	return out
}
