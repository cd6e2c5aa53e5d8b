package registry

import "github.com/opensource-finance/caracara/internal/domain"

// seedInstitutions returns the bundled registry dataset: the regulated
// institutions that legitimately receive duplicata endorsements, plus
// known non-financial entities observed as endorsement targets in past
// diversion cases.
func seedInstitutions() []domain.Institution {
	return []domain.Institution{
		{TaxID: "00.000.000/0001-91", Name: "Banco do Brasil S.A.", Registered: true, Standing: "regular", Category: "banco comercial"},
		{TaxID: "60.701.190/0001-04", Name: "Itaú Unibanco S.A.", Registered: true, Standing: "regular", Category: "banco comercial"},
		{TaxID: "60.746.948/0001-12", Name: "Bradesco S.A.", Registered: true, Standing: "regular", Category: "banco comercial"},
		{TaxID: "90.400.888/0001-42", Name: "Santander Brasil S.A.", Registered: true, Standing: "regular", Category: "banco comercial"},
		{TaxID: "00.360.305/0001-04", Name: "Caixa Econômica Federal", Registered: true, Standing: "regular", Category: "banco estatal"},
		{TaxID: "30.306.294/0001-45", Name: "BTG Pactual S.A.", Registered: true, Standing: "regular", Category: "banco de investimentos"},
		{TaxID: "58.160.789/0001-28", Name: "Safra S.A.", Registered: true, Standing: "regular", Category: "banco comercial"},
		{TaxID: "00.416.968/0001-01", Name: "Banco Inter S.A.", Registered: true, Standing: "regular", Category: "banco digital"},

		{TaxID: "11.222.333/0001-81", Name: "Consultoria e Gestão Empresarial Ltda", Registered: false, Standing: "regular", Category: "empresa de consultoria"},
		{TaxID: "22.333.444/0001-72", Name: "M.S. Apoio Administrativo", Registered: false, Standing: "regular", Category: "serviços administrativos"},
		{TaxID: "", Name: "João da Silva - CPF 123.456.789-00", Registered: false, Standing: "regular", Category: "pessoa física"},
		{TaxID: "33.444.555/0001-63", Name: "Padaria e Confeitaria do Bairro", Registered: false, Standing: "regular", Category: "estabelecimento comercial"},
		{TaxID: "44.555.666/0001-54", Name: "Holding Patrimonial X", Registered: false, Standing: "suspensa", Category: "holding patrimonial"},
		{TaxID: "55.666.777/0001-45", Name: "Associação de Moradores da Vila", Registered: false, Standing: "regular", Category: "associação civil"},
		{TaxID: "66.777.888/0001-36", Name: "Lava Jato Rápido ME", Registered: false, Standing: "baixada", Category: "microempresa"},
		{TaxID: "", Name: "Maria Oliveira - CPF 987.654.321-00", Registered: false, Standing: "regular", Category: "pessoa física"},
		{TaxID: "77.888.999/0001-27", Name: "J.P. Consultoria Individual", Registered: false, Standing: "regular", Category: "consultoria individual"},
		{TaxID: "88.999.000/0001-18", Name: "Bar e Mercearia Central", Registered: false, Standing: "regular", Category: "comércio varejista"},
	}
}
