package sales

import (
	"context"
	"fmt"

	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
)

// RenderPDF genera el PDF de la cotización para enviarlo al cliente.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la orden no existe.
func (uc *SalesUseCase) RenderPDF(ctx context.Context, id string) (pdfBytes []byte, filename string, err error) {
	ctx, span := uc.startSpan(ctx, "RenderPDF", id)
	defer func() { endSpan(span, err) }()

	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, "", err
	}
	client, err := uc.clients.GetByID(ctx, o.ClientID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener cliente: %w", err)
	}
	if client == nil {
		client = &entity.Client{ID: o.ClientID, FullName: fmt.Sprintf("Cliente %d", o.ClientID)}
	}
	company, err := uc.config.Get(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener configuración: %w", err)
	}
	if company == nil {
		company = &entity.GlobalConfig{}
	}

	pdfBytes, err = uc.pdf.GenerateQuotePDF(ctx, QuoteDocument{
		Order:   o,
		Client:  client,
		Company: company,
		TaxRate: o.TaxRateValue(uc.settings.FallbackTaxRate),
	})
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("cotizacion_%s.pdf", shortID(o.ID)), nil
}

// shortID primeros 8 caracteres del UUID, como se muestra en el folio.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
