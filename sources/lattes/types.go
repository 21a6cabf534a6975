package lattes

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts either a plain JSON string or a list-of-one string;
// both spellings occur in curriculum exports.
type FlexString string

// UnmarshalJSON implements the lenient decoding.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	if len(list) > 0 {
		*f = FlexString(list[0])
	}
	return nil
}

// String returns the trimmed value.
func (f FlexString) String() string { return strings.TrimSpace(string(f)) }

// FlexYear accepts a year as number or string. "Atual" (ongoing) and
// unparseable values decode to zero.
type FlexYear int

// UnmarshalJSON implements the lenient decoding.
func (y *FlexYear) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*y = FlexYear(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		*y = 0
		return nil
	}
	*y = FlexYear(v)
	return nil
}

// Curriculum is one researcher's semi-structured curriculum export.
type Curriculum struct {
	InformacoesPessoais     PersonalInfo  `json:"informacoes_pessoais"`
	ProjetosPesquisa        []ProjectItem `json:"projetos_pesquisa"`
	ProjetosExtensao        []ProjectItem `json:"projetos_extensao"`
	ProjetosDesenvolvimento []ProjectItem `json:"projetos_desenvolvimento"`

	// Two advisorship layouts exist in the wild: the nested orientacoes
	// section and the flat dados_complementares lists. Either may be set.
	Orientacoes         *Orientacoes         `json:"orientacoes,omitempty"`
	DadosComplementares *DadosComplementares `json:"dados_complementares,omitempty"`

	ProducaoBibliografica ProducaoBibliografica `json:"producao_bibliografica"`
	FormacaoAcademica     []EducationItem       `json:"formacao_academica"`
}

// PersonalInfo is the curriculum owner's identification block.
type PersonalInfo struct {
	Nome     string `json:"nome"`
	IDLattes string `json:"id_lattes"`
	Email    string `json:"email"`
}

// ProjectItem is one research/extension/development project entry.
type ProjectItem struct {
	Nome      FlexString `json:"nome"`
	Situacao  string     `json:"situacao"`
	AnoInicio FlexYear   `json:"ano_inicio"`
	AnoFim    FlexYear   `json:"ano_fim"`
	Descricao FlexString `json:"descricao"`
}

// Orientacoes groups advisorship items by completion state, then by
// sub-type (iniciação científica, TCC, mestrado...).
type Orientacoes struct {
	Concluidas  map[string][]AdvisorshipItem `json:"concluidas"`
	EmAndamento map[string][]AdvisorshipItem `json:"em_andamento"`
}

// DadosComplementares is the flat advisorship layout.
type DadosComplementares struct {
	OrientacoesConcluidas  []AdvisorshipItem `json:"orientacoes_concluidas"`
	OrientacoesEmAndamento []AdvisorshipItem `json:"orientacoes_em_andamento"`
}

// AdvisorshipItem is one supervised engagement in the curriculum.
type AdvisorshipItem struct {
	Titulo    FlexString `json:"titulo"`
	Orientado string     `json:"orientado"`
	Tipo      string     `json:"tipo"`
	Ano       FlexYear   `json:"ano"`
}

// NormalizedAdvisorship is the layout-independent advisorship view.
type NormalizedAdvisorship struct {
	Title     string
	Student   string
	SubType   string
	Year      int
	Concluded bool
}

// Advisorships flattens either layout into identical canonical items.
func (c *Curriculum) Advisorships() []NormalizedAdvisorship {
	var out []NormalizedAdvisorship
	appendItems := func(items []AdvisorshipItem, subType string, concluded bool) {
		for _, item := range items {
			title := item.Titulo.String()
			if title == "" {
				continue
			}
			st := subType
			if st == "" {
				st = strings.TrimSpace(item.Tipo)
			}
			out = append(out, NormalizedAdvisorship{
				Title:     title,
				Student:   strings.TrimSpace(item.Orientado),
				SubType:   st,
				Year:      int(item.Ano),
				Concluded: concluded,
			})
		}
	}
	if c.Orientacoes != nil {
		for subType, items := range c.Orientacoes.Concluidas {
			appendItems(items, subType, true)
		}
		for subType, items := range c.Orientacoes.EmAndamento {
			appendItems(items, subType, false)
		}
	}
	if c.DadosComplementares != nil {
		appendItems(c.DadosComplementares.OrientacoesConcluidas, "", true)
		appendItems(c.DadosComplementares.OrientacoesEmAndamento, "", false)
	}
	return out
}

// ProducaoBibliografica holds the publication lists.
type ProducaoBibliografica struct {
	ArtigosPeriodicos           []ArticleItem `json:"artigos_periodicos"`
	TrabalhosCompletosCongresso []ArticleItem `json:"trabalhos_completos_congressos"`
}

// ArticleItem is one publication entry.
type ArticleItem struct {
	Titulo    FlexString `json:"titulo"`
	Ano       FlexYear   `json:"ano"`
	Periodico string     `json:"periodico"`
	Evento    string     `json:"evento"`
	Volume    string     `json:"volume"`
	Paginas   string     `json:"paginas"`
	DOI       string     `json:"doi"`
	Autores   []string   `json:"autores"`
}

// Venue returns the journal or conference name, whichever is set.
func (a *ArticleItem) Venue() string {
	if v := strings.TrimSpace(a.Periodico); v != "" {
		return v
	}
	return strings.TrimSpace(a.Evento)
}

// EducationItem is one degree in the curriculum.
type EducationItem struct {
	Tipo          string     `json:"tipo"`
	Curso         FlexString `json:"curso"`
	Instituicao   string     `json:"instituicao"`
	AnoInicio     FlexYear   `json:"ano_inicio"`
	AnoConclusao  FlexYear   `json:"ano_conclusao"` // zero while "Atual"
	TituloTese    FlexString `json:"titulo_trabalho"`
	Orientador    string     `json:"orientador"`
	Coorientador  string     `json:"coorientador"`
	AreasAtuacao  []string   `json:"areas_atuacao"`
}
