package cnpq

// GroupPayload is the nested mapping the external crawler produces for one
// research-group mirror page.
type GroupPayload struct {
	Identificacao    Identificacao    `json:"identificacao"`
	RecursosHumanos  RecursosHumanos  `json:"recursos_humanos"`
	LinhasDePesquisa LinhasDePesquisa `json:"linhas_de_pesquisa"`
}

// Identificacao carries the group's header block.
type Identificacao struct {
	NomeDoGrupo    string   `json:"nome_do_grupo"`
	Situacao       string   `json:"situacao"`
	AnoFormacao    string   `json:"ano_formacao"`
	LideresDoGrupo []Member `json:"lideres_do_grupo"`
}

// RecursosHumanos lists the group's people by section.
type RecursosHumanos struct {
	Pesquisadores []Member `json:"pesquisadores"`
	Estudantes    []Member `json:"estudantes"`
	Tecnicos      []Member `json:"tecnicos"`
	Egressos      []Member `json:"egressos"`
}

// Member is one person entry on the mirror page.
type Member struct {
	Nome         string `json:"nome"`
	DataInclusao string `json:"data_inclusao"` // DD/MM/YYYY
	IDLattes     string `json:"id_lattes"`
}

// LinhasDePesquisa wraps the research-line list.
type LinhasDePesquisa struct {
	Linhas []Linha `json:"linhas"`
}

// Linha is one research line.
type Linha struct {
	Nome string `json:"nome"`
}
