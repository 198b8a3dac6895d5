package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// MaxPageSize tope de registros por página.
const MaxPageSize = 100

// DefaultPage aplica valores por defecto si Limit/Offset son cero y acota Limit a MaxPageSize.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas. HasMore indica que la página vino llena.
type PageResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total,omitempty"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse cuerpo de error HTTP. Details lleva los identificadores que causaron el
// error (ítems pendientes, nivel esperado, etapa) para que el cliente pueda corregir.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
