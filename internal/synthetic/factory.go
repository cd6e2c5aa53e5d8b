// Package synthetic generates labeled duplicata datasets with known fraud
// patterns injected at a configurable rate. It is used to seed the community
// edition database and to drive benchmarks, and is fully deterministic for a
// given seed.
package synthetic

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/caracara/internal/domain"
)

// sectors maps each economic sector to the products its companies trade.
var sectors = map[string][]string{
	"Construção": {
		"Cimento", "Tijolo", "Vergalhão", "Areia",
		"Telha", "Tinta", "Madeira", "Porta", "Janela",
	},
	"Tecnologia": {
		"Licença de Software", "Notebook", "Servidor", "Cabo de Rede",
		"Mouse", "Teclado", "Monitor", "Roteador", "SSD",
	},
	"Alimentos": {
		"Farinha de Trigo", "Açúcar", "Óleo de Soja", "Carne Bovina",
		"Arroz", "Feijão", "Leite", "Café", "Macarrão",
	},
	"Automotivo": {
		"Pneu", "Óleo Motor", "Pastilha de Freio", "Bateria",
		"Velas de Ignição", "Amortecedor", "Filtro de Ar", "Correia Dentada",
	},
	"Farmácia": {
		"Antibiótico", "Analgésico", "Fralda", "Vitamina",
		"Xarope", "Compressa", "Soro Fisiológico", "Protetor Solar",
	},
	"Moda": {
		"Camiseta", "Calça Jeans", "Tênis", "Vestido",
		"Jaqueta", "Meias", "Chapéu", "Bolsa",
	},
	"Esportes": {
		"Bola de Futebol", "Raquete de Tênis", "Tênis Esportivo", "Bicicleta",
		"Luvas de Boxe", "Tapete de Yoga", "Corda de Pular", "Halteres",
	},
	"Móveis": {
		"Cadeira", "Mesa", "Sofá", "Cama",
		"Armário", "Estante", "Poltrona", "Criado-mudo",
	},
}

var sectorNames = []string{
	"Construção", "Tecnologia", "Alimentos", "Automotivo",
	"Farmácia", "Moda", "Esportes", "Móveis",
}

var states = []string{"SP", "RJ", "MG", "RS", "PE", "BA", "AC"}

// legitEndorsees are regulated financial institutions that commonly receive
// duplicata endorsements in discount operations.
var legitEndorsees = []string{
	"Banco do Brasil S.A.",
	"Itaú Unibanco S.A.",
	"Bradesco S.A.",
	"Santander Brasil S.A.",
	"Caixa Econômica Federal",
	"BTG Pactual S.A.",
	"Safra S.A.",
	"Banco Inter S.A.",
}

var companyPrefixes = []string{
	"Comercial", "Distribuidora", "Indústria", "Atacadista",
	"Importadora", "Cooperativa", "Grupo", "Casa",
}

var companySurnames = []string{
	"Almeida", "Barbosa", "Cardoso", "Duarte", "Esteves", "Ferreira",
	"Gonçalves", "Holanda", "Iglesias", "Junqueira", "Klein", "Lacerda",
	"Medeiros", "Nogueira", "Oliveira", "Pacheco", "Queiroz", "Rezende",
	"Siqueira", "Teixeira", "Uchoa", "Vasconcelos", "Weber", "Ximenes",
}

var companySuffixes = []string{"Ltda", "S.A.", "ME", "EPP", "e Filhos"}

type company struct {
	ID     string
	Name   string
	TaxID  string
	State  string
	Sector string
}

// Factory generates a portfolio of creditor and debtor companies and the
// duplicatas traded between them. All randomness flows through a single
// seeded source, so two factories with the same seed produce identical
// datasets.
type Factory struct {
	rng       *rand.Rand
	now       time.Time
	creditors []company
	debtors   []company
}

// NewFactory creates a factory seeded with the given value. The reference
// time anchors emission and due dates.
func NewFactory(seed int64, now time.Time) *Factory {
	return &Factory{
		rng: rand.New(rand.NewSource(seed)),
		now: now.UTC().Truncate(24 * time.Hour),
	}
}

// Generate builds a full dataset per the seed configuration: a portfolio of
// companies, healthy duplicatas between them, and injected fraud on top.
func (f *Factory) Generate(cfg domain.SeedConfig) []domain.Receivable {
	f.generatePortfolio(cfg.Creditors, cfg.Debtors)

	dataset := make([]domain.Receivable, 0, cfg.Receivables+cfg.Receivables/4)
	for i := 0; i < cfg.Receivables; i++ {
		dataset = append(dataset, f.NormalReceivable())
	}

	inj := newInjector(f)
	return inj.contaminate(dataset, cfg.FraudRate)
}

func (f *Factory) generatePortfolio(creditors, debtors int) {
	f.creditors = make([]company, 0, creditors)
	for i := 0; i < creditors; i++ {
		f.creditors = append(f.creditors, f.newCompany())
	}
	f.debtors = make([]company, 0, debtors)
	for i := 0; i < debtors; i++ {
		f.debtors = append(f.debtors, f.newCompany())
	}
}

func (f *Factory) newCompany() company {
	return company{
		ID:     f.uuid(),
		Name:   f.companyName(),
		TaxID:  f.cnpj(),
		State:  states[f.rng.Intn(len(states))],
		Sector: sectorNames[f.rng.Intn(len(sectorNames))],
	}
}

func (f *Factory) companyName() string {
	return fmt.Sprintf("%s %s %s",
		companyPrefixes[f.rng.Intn(len(companyPrefixes))],
		companySurnames[f.rng.Intn(len(companySurnames))],
		companySuffixes[f.rng.Intn(len(companySuffixes))])
}

func (f *Factory) cnpj() string {
	return fmt.Sprintf("%02d.%03d.%03d/%04d-%02d",
		f.rng.Intn(100), f.rng.Intn(1000), f.rng.Intn(1000),
		1+f.rng.Intn(9999), f.rng.Intn(100))
}

// uuid draws identifier bytes from the seeded source so datasets stay
// reproducible.
func (f *Factory) uuid() string {
	return uuid.Must(uuid.NewRandomFromReader(f.rng)).String()
}

// invoiceKey simulates an NF-e access key: state code, emission year and
// month, then random digits padded to 44 positions.
func (f *Factory) invoiceKey(emission time.Time) string {
	key := fmt.Sprintf("35%s%010d%010d",
		emission.Format("0601"),
		f.rng.Int63n(10_000_000_000),
		f.rng.Int63n(10_000_000_000))
	for len(key) < 44 {
		key += "0"
	}
	return key[:44]
}

// dateBetween picks a day uniformly in [now-daysBack, now-daysFwdCut].
func (f *Factory) dateBetween(daysBack, daysFwdCut int) time.Time {
	span := daysBack - daysFwdCut
	if span <= 0 {
		return f.now.AddDate(0, 0, -daysBack)
	}
	return f.now.AddDate(0, 0, -daysBack+f.rng.Intn(span+1))
}

// NormalReceivable generates a healthy duplicata: sector-consistent product,
// market term, debtor acceptance and, occasionally, endorsement to a
// regulated institution.
func (f *Factory) NormalReceivable() domain.Receivable {
	creditor := f.creditors[f.rng.Intn(len(f.creditors))]
	debtor := f.debtors[f.rng.Intn(len(f.debtors))]

	emission := f.dateBetween(180, 0)
	term := []int{30, 45, 60, 90}[f.rng.Intn(4)]
	due := emission.AddDate(0, 0, term)

	products := sectors[creditor.Sector]
	product := products[f.rng.Intn(len(products))]

	base := 1000 + f.rng.Float64()*9000
	amount := round2(base * (0.9 + f.rng.Float64()*0.2))

	// Roughly one in ten duplicatas is discounted with a bank.
	endorsee := ""
	if f.rng.Intn(10) == 0 {
		endorsee = legitEndorsees[f.rng.Intn(len(legitEndorsees))]
	}

	label := 0
	return domain.Receivable{
		ID:             f.uuid(),
		InvoiceKey:     f.invoiceKey(emission),
		IssuedAt:       emission,
		DueAt:          due,
		TermDays:       term,
		CreditorID:     creditor.ID,
		CreditorName:   creditor.Name,
		CreditorTaxID:  creditor.TaxID,
		CreditorState:  creditor.State,
		CreditorSector: creditor.Sector,
		DebtorID:       debtor.ID,
		DebtorName:     debtor.Name,
		DebtorTaxID:    debtor.TaxID,
		DebtorState:    debtor.State,
		DebtorSector:   debtor.Sector,
		Product:        product,
		Amount:         amount,
		Accepted:       true,
		Endorsee:       endorsee,
		FraudLabel:     &label,
		FraudType:      "Nenhuma",
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
