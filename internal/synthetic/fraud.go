package synthetic

import (
	"fmt"

	"github.com/opensource-finance/caracara/internal/domain"
)

// Fraud type labels attached to injected records.
const (
	FraudGhostIssue     = "EMISSAO_FALSA"
	FraudDoubleDiscount = "DUPLICIDADE"
	FraudBadEndorsement = "ENDOSSO_INDEVIDO"
	FraudCircular       = "RELACAO_CIRCULAR"
	FraudAbnormalTerm   = "VENCIMENTO_ANOMALO"
	FraudOutlierAmount  = "VALOR_INCOMPATIVEL"
)

// FraudTypes lists every pattern the injector produces.
var FraudTypes = []string{
	FraudGhostIssue, FraudDoubleDiscount, FraudBadEndorsement,
	FraudCircular, FraudAbnormalTerm, FraudOutlierAmount,
}

// shellEndorsees are non-financial entities used as endorsement targets in
// diversion schemes.
var shellEndorsees = []string{
	"Consultoria e Gestão Empresarial Ltda",
	"M.S. Apoio Administrativo",
	"João da Silva - CPF 123.456.789-00",
	"Padaria e Confeitaria do Bairro",
	"Holding Patrimonial X",
	"Associação de Moradores da Vila",
	"Lava Jato Rápido ME",
	"Maria Oliveira - CPF 987.654.321-00",
	"J.P. Consultoria Individual",
	"Bar e Mercearia Central",
}

var vagueProducts = []string{
	"Serviços Diversos",
	"Consultoria Geral",
	"Materiais Diversos",
	"Produtos Variados",
}

var roundAmounts = []float64{
	10000, 20000, 25000, 50000, 75000, 100000, 150000, 200000,
}

var incompatibleProducts = []string{
	"Equipamentos Hospitalares de Alta Complexidade",
	"Turbinas Aeronáuticas",
	"Usina de Energia Solar Industrial",
}

// smallSectors are low-ticket sectors where outsized amounts stand out.
var smallSectors = []string{"Alimentos", "Moda", "Farmácia"}

// injector contaminates a healthy dataset with the six known fraud
// patterns. Each pattern starts from a normal record and perturbs the
// fields that give that scheme away.
type injector struct {
	f *Factory
}

func newInjector(f *Factory) *injector {
	return &injector{f: f}
}

// contaminate appends int(len*rate) fraudulent records, each of a randomly
// chosen pattern, then shuffles the combined dataset.
func (in *injector) contaminate(dataset []domain.Receivable, rate float64) []domain.Receivable {
	count := int(float64(len(dataset)) * rate)
	for i := 0; i < count; i++ {
		switch in.f.rng.Intn(len(FraudTypes)) {
		case 0:
			dataset = append(dataset, in.ghostIssue())
		case 1:
			dataset = append(dataset, in.doubleDiscount(dataset))
		case 2:
			dataset = append(dataset, in.badEndorsement())
		case 3:
			dataset = append(dataset, in.circularRelation())
		case 4:
			dataset = append(dataset, in.abnormalTerm())
		case 5:
			dataset = append(dataset, in.outlierAmount())
		}
	}
	in.f.rng.Shuffle(len(dataset), func(i, j int) {
		dataset[i], dataset[j] = dataset[j], dataset[i]
	})
	return dataset
}

func (in *injector) label(r domain.Receivable, fraudType string) domain.Receivable {
	one := 1
	r.FraudLabel = &one
	r.FraudType = fraudType
	return r
}

// ghostIssue fabricates a sale that never happened: a round invented
// amount, a vague product, no debtor acceptance and a very recent issue
// date.
func (in *injector) ghostIssue() domain.Receivable {
	r := in.f.NormalReceivable()
	r.Amount = roundAmounts[in.f.rng.Intn(len(roundAmounts))]
	r.Accepted = false
	r.Product = vagueProducts[in.f.rng.Intn(len(vagueProducts))]
	r.IssuedAt = in.f.dateBetween(7, 0)
	r.DueAt = r.IssuedAt.AddDate(0, 0, r.TermDays)
	return in.label(r, FraudGhostIssue)
}

// doubleDiscount clones an existing duplicata under a fresh document ID
// while keeping the same invoice key, simulating the same invoice being
// discounted at two institutions.
func (in *injector) doubleDiscount(dataset []domain.Receivable) domain.Receivable {
	if len(dataset) < 10 {
		return in.f.NormalReceivable()
	}
	r := dataset[in.f.rng.Intn(len(dataset))]
	r.ID = in.f.uuid()
	return in.label(r, FraudDoubleDiscount)
}

// badEndorsement endorses the title to a non-financial shell entity.
func (in *injector) badEndorsement() domain.Receivable {
	r := in.f.NormalReceivable()
	r.Endorsee = shellEndorsees[in.f.rng.Intn(len(shellEndorsees))]
	return in.label(r, FraudBadEndorsement)
}

// circularRelation makes creditor and debtor look like the same economic
// group: shared tax id root, same state and an inflated amount.
func (in *injector) circularRelation() domain.Receivable {
	r := in.f.NormalReceivable()
	root := r.CreditorTaxID
	if len(root) > 10 {
		root = root[:10]
	}
	r.DebtorTaxID = root + in.suffix()
	r.DebtorState = r.CreditorState
	r.Amount = round2(50000 + in.f.rng.Float64()*150000)
	return in.label(r, FraudCircular)
}

func (in *injector) suffix() string {
	return fmt.Sprintf("/%04d-%02d", 1000+in.f.rng.Intn(9000), 10+in.f.rng.Intn(90))
}

// abnormalTerm produces one of three temporal anomalies: an urgent term,
// an excessively long one, or a title that is already past due.
func (in *injector) abnormalTerm() domain.Receivable {
	r := in.f.NormalReceivable()
	switch in.f.rng.Intn(3) {
	case 0:
		r.TermDays = 1 + in.f.rng.Intn(5)
	case 1:
		r.TermDays = 200 + in.f.rng.Intn(166)
	default:
		// Issued at least 91 days back with a term of at most 90 days,
		// so the title is always strictly past due.
		r.TermDays = 30 + in.f.rng.Intn(61)
		r.IssuedAt = in.f.dateBetween(180, 91)
	}
	r.DueAt = r.IssuedAt.AddDate(0, 0, r.TermDays)
	return in.label(r, FraudAbnormalTerm)
}

// outlierAmount attaches an amount and product far beyond a small sector's
// operational capacity.
func (in *injector) outlierAmount() domain.Receivable {
	r := in.f.NormalReceivable()
	r.CreditorSector = smallSectors[in.f.rng.Intn(len(smallSectors))]
	r.Amount = round2(500000 + in.f.rng.Float64()*1500000)
	r.Product = incompatibleProducts[in.f.rng.Intn(len(incompatibleProducts))]
	return in.label(r, FraudOutlierAmount)
}
