package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/hash"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)

func NewRecordConversionUseCase(
	leadRepo entity.LeadRepositoryInterface,
	conversionRepo entity.ConversionRepositoryInterface,
	jobRepo entity.AdsUploadJobRepositoryInterface,
	producer QueueProducerInterface,
	dealRefFirst bool,
) *RecordConversionUseCase {
	return &RecordConversionUseCase{
		LeadRepo:       leadRepo,
		ConversionRepo: conversionRepo,
		JobRepo:        jobRepo,
		Producer:       producer,
		DealRefFirst:   dealRefFirst,
	}
}

// Execute é a orquestração do webhook depois de autenticado e
// parseado: match -> dedup -> enfileira upload. Qualquer desfecho
// daqui responde 200 pro CRM; erro técnico é logado, nunca devolvido
// como falha HTTP (o retry do CRM só amplificaria carga).
func (uc *RecordConversionUseCase) Execute(ctx context.Context, input RecordConversionInput) (*RecordConversionOutput, error) {
	stage := strings.ToLower(strings.TrimSpace(input.Stage))
	if !entity.ValidStage(stage) {
		log.Printf("ℹ️ Webhook: estágio %q não gera conversão, ignorando", input.Stage)
		return &RecordConversionOutput{Outcome: OutcomeIgnoredStage}, nil
	}

	// 1. Match do lead
	lead, err := uc.matchLead(ctx, input)
	if errors.Is(err, entity.ErrLeadNotFound) {
		// Resultado esperado: deal criado na mão no CRM, sem lead web
		log.Printf("ℹ️ Webhook: nenhum lead pro deal %s", input.CRMDealID)
		return &RecordConversionOutput{Outcome: OutcomeNoMatch}, nil
	}
	if err != nil {
		return nil, &TechnicalError{Code: "LEAD_LOOKUP", Message: err.Error()}
	}

	// 2. Check-and-insert atômico: a correção sob replay concorrente
	// vem DAQUI (constraint do banco), não de lock em memória
	conv, err := entity.NewConversion(lead.ID, stage, input.CRMDealID)
	if err != nil {
		return nil, &DomainError{Code: "INVALID_CONVERSION", Message: err.Error()}
	}

	conv, created, err := uc.ConversionRepo.CreateIfAbsent(ctx, conv)
	if err != nil {
		return nil, &TechnicalError{Code: "CONVERSION_INSERT", Message: err.Error()}
	}

	if !created {
		log.Printf("🔁 Webhook: conversão (%s, %s) já registrada, entrega duplicada", lead.ID, stage)
		return &RecordConversionOutput{Outcome: OutcomeDuplicate, Conversion: conv}, nil
	}

	log.Printf("🎯 Conversão %s registrada (lead=%s, stage=%s, deal=%s)",
		conv.ID, lead.ID, stage, input.CRMDealID)

	// 3. Job durável + publish. A linha no banco é a fonte de verdade;
	// se o publish falhar, a varredura reenfileira depois.
	job, err := entity.NewAdsUploadJob(conv.ID, lead.EmailHash, lead.ClickIDs.Best(), stage)
	if err != nil {
		return nil, &DomainError{Code: "INVALID_JOB", Message: err.Error()}
	}

	if err := uc.JobRepo.Create(ctx, job); err != nil {
		log.Printf("⚠️ CRITICAL: conversão gravada mas job de upload não: %v", err)
		return &RecordConversionOutput{Outcome: OutcomeRecorded, Conversion: conv}, nil
	}

	payload := queue.UploadPayload{
		JobID:        job.ID,
		ConversionID: conv.ID,
		EmailHash:    job.EmailHash,
		ClickID:      job.ClickID,
		Stage:        stage,
	}

	if err := uc.Producer.PublishUpload(ctx, payload); err != nil {
		log.Printf("⚠️ CRITICAL: job %s gravado mas falha na fila (a varredura pega): %v", job.ID, err)
		return &RecordConversionOutput{Outcome: OutcomeRecorded, Conversion: conv}, nil
	}

	return &RecordConversionOutput{Outcome: OutcomeRecorded, Conversion: conv}, nil
}

// matchLead resolve o lead pela melhor chave disponível. A ordem
// deal-ref/email é configurável; a referência armazenada na criação
// do lead é a default mais forte.
func (uc *RecordConversionUseCase) matchLead(ctx context.Context, input RecordConversionInput) (*entity.Lead, error) {
	byRef := func() (*entity.Lead, error) {
		ref := input.ExternalRef
		if ref == "" {
			ref = input.CRMDealID
		}
		if ref == "" {
			return nil, entity.ErrLeadNotFound
		}
		return uc.LeadRepo.FindByCRMDealRef(ctx, ref)
	}

	byEmail := func() (*entity.Lead, error) {
		if strings.TrimSpace(input.Email) == "" {
			return nil, entity.ErrLeadNotFound
		}
		return uc.LeadRepo.FindByEmailHash(ctx, hash.Email(input.Email))
	}

	first, second := byRef, byEmail
	if !uc.DealRefFirst {
		first, second = byEmail, byRef
	}

	lead, err := first()
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, entity.ErrLeadNotFound) {
		return nil, err
	}

	return second()
}
