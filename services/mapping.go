package services

import (
	"strconv"
	"strings"
	"time"
)

// FellowshipData is the mapped funding-program block of an advisorship row.
type FellowshipData struct {
	Name        string
	Value       float64
	Description string
}

// ProjectData is the canonical shape every mapping strategy produces. The
// loaders and handlers consume only this shape, never raw rows.
type ProjectData struct {
	Title       string
	Status      string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time

	TypeName string

	CoordinatorName  string
	CoordinatorEmail string
	ResearcherNames  []string
	StudentNames     []string
	StudentEmails    []string

	Keywords          string
	ResearchGroupName string
	CampusName        string
	ParentTitle       string

	Fellowship *FellowshipData

	// Advisorship selects the AdvisorshipHandler instead of the standard
	// one.
	Advisorship bool

	// Free-form attributes preserved on the initiative.
	Metadata map[string]any
}

// MappingStrategy converts one source row into the canonical project shape.
type MappingStrategy interface {
	Name() string
	Map(row map[string]string) (*ProjectData, error)
}

// pick returns the first non-blank cell among the given column names. The
// institutional exports drift between accented and plain headers.
func pick(row map[string]string, columns ...string) string {
	for _, col := range columns {
		if v, ok := row[col]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// splitNames explodes a semicolon-separated name list.
func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NormalizeStatus maps source situation strings onto the canonical
// Active/Concluded pair. Unknown values fall back to Active so ongoing
// work is never hidden from the dashboards.
func NormalizeStatus(s string) string {
	switch NormalizeName(s) {
	case "EM ANDAMENTO", "EM EXECUCAO", "ATIVO", "ATIVA":
		return "Active"
	case "CONCLUIDO", "CONCLUIDA", "FINALIZADO", "FINALIZADA", "ENCERRADO", "ENCERRADA":
		return "Concluded"
	case "":
		return "Active"
	default:
		return "Active"
	}
}

// ParseMoney parses a currency cell that may carry a comma decimal
// separator and a currency prefix. Defaults to 0 on failure.
func ParseMoney(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// 1.234,56 -> 1234.56
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// ProjectMapping maps the institutional project spreadsheet (research,
// extension and development projects).
type ProjectMapping struct {
	// TypeName tags every mapped row: Research Project, Extension Project
	// or Development Project depending on the source file.
	TypeName string
}

func (m *ProjectMapping) Name() string { return "projects:" + m.TypeName }

func (m *ProjectMapping) Map(row map[string]string) (*ProjectData, error) {
	data := &ProjectData{
		Title:             pick(row, "Titulo", "Título"),
		Status:            NormalizeStatus(pick(row, "Situacao", "Situação")),
		Description:       pick(row, "Resumo"),
		StartDate:         ParseDate(pick(row, "Inicio", "Início")),
		EndDate:           ParseDate(pick(row, "Fim")),
		TypeName:          m.TypeName,
		CoordinatorName:   pick(row, "Coordenador"),
		ResearcherNames:   splitNames(pick(row, "Pesquisadores")),
		StudentNames:      splitNames(pick(row, "Estudantes")),
		Keywords:          pick(row, "PalavrasChave", "Palavras-Chave", "Keywords"),
		ResearchGroupName: pick(row, "GrupoPesquisa", "Grupo de Pesquisa"),
		CampusName:        pick(row, "CampusExecucao", "Campus"),
	}
	if approved := pick(row, "Valor Aprovado"); approved != "" {
		data.Metadata = map[string]any{"approved_value": ParseMoney(approved)}
	}
	return data, nil
}

// AdvisorshipMapping maps the advisorship spreadsheet. Each row is a
// supervised student engagement, optionally attached to a parent project
// and backed by a fellowship program.
type AdvisorshipMapping struct{}

func (AdvisorshipMapping) Name() string { return "advisorships" }

func (AdvisorshipMapping) Map(row map[string]string) (*ProjectData, error) {
	data := &ProjectData{
		Title:            pick(row, "TituloPT"),
		Status:           NormalizeStatus(pick(row, "Situacao", "Situação")),
		StartDate:        ParseDate(pick(row, "Inicio", "Início")),
		EndDate:          ParseDate(pick(row, "Fim")),
		TypeName:         "Advisorship",
		CoordinatorName:  pick(row, "Orientador"),
		CoordinatorEmail: pick(row, "OrientadorEmail"),
		ParentTitle:      pick(row, "TituloPJ"),
		Advisorship:      true,
	}
	if student := pick(row, "Orientado"); student != "" {
		data.StudentNames = []string{student}
		data.StudentEmails = []string{pick(row, "OrientadoEmail")}
	}
	if program := pick(row, "Programa"); program != "" {
		data.Fellowship = &FellowshipData{
			Name:        strings.ToUpper(program),
			Value:       ParseMoney(pick(row, "Valor")),
			Description: pick(row, "agFinanciadora"),
		}
	}
	if id := pick(row, "Id"); id != "" {
		data.Metadata = map[string]any{"source_id": id}
	}
	return data, nil
}
