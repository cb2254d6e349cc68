package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/qa"
	"github.com/ppiankov/decision-ledger/internal/receipt"
)

func catalogFilter(c *gin.Context) model.CatalogFilter {
	return model.CatalogFilter{
		Jurisdiction: c.Query("jurisdiction"),
		ProductLine:  c.Query("product_line"),
		Search:       c.Query("search"),
	}
}

func (s *Server) listClaims(c *gin.Context) {
	claims, err := s.deps.Catalog.Claims(catalogFilter(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	summaries := make([]model.ClaimSummary, 0, len(claims))
	for _, claim := range claims {
		summaries = append(summaries, claim.Summary())
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) getClaim(c *gin.Context) {
	claim, err := s.deps.Catalog.Claim(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (s *Server) listInterpretationSets(c *gin.Context) {
	sets, err := s.deps.Catalog.InterpretationSets(catalogFilter(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sets)
}

func (s *Server) getInterpretationSet(c *gin.Context) {
	set, err := s.deps.Catalog.InterpretationSet(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) listAssumptionSets(c *gin.Context) {
	sets, err := s.deps.Catalog.AssumptionSets(catalogFilter(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sets)
}

func (s *Server) getAssumptionSet(c *gin.Context) {
	set, err := s.deps.Catalog.AssumptionSet(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) listDecisions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := s.deps.Decisions.List(c.Request.Context(), c.Query("claim_id"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getDecision(c *gin.Context) {
	run, err := s.deps.Decisions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) runDecision(c *gin.Context) {
	var req model.DecisionRunRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.deps.Decisions.Run(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) counterfactual(c *gin.Context) {
	var req model.CounterfactualRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.deps.Decisions.Counterfactual(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// diffRequest names the two stored runs to compare
type diffRequest struct {
	RunA string `json:"run_a" binding:"required"`
	RunB string `json:"run_b" binding:"required"`
}

func (s *Server) diff(c *gin.Context) {
	var req diffRequest
	if !bindJSON(c, &req) {
		return
	}
	divergence, err := s.deps.Decisions.Diff(c.Request.Context(), req.RunA, req.RunB)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, divergence)
}

func (s *Server) receipt(c *gin.Context) {
	format, err := receipt.ParseFormat(c.Query("format"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	run, err := s.deps.Decisions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	if format == receipt.FormatMarkdown {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(receipt.Markdown(run, nil)))
		return
	}
	c.JSON(http.StatusOK, receipt.New(run, nil))
}

// explainRequest optionally asks for the narrative of a what-if
type explainRequest struct {
	Counterfactual *model.CounterfactualRequest `json:"counterfactual"`
}

func (s *Server) explain(c *gin.Context) {
	var req explainRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	run, err := s.deps.Decisions.Get(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	var cf *model.CounterfactualResult
	if req.Counterfactual != nil {
		cfReq := *req.Counterfactual
		cfReq.BaseRunID = run.RunID
		if cf, err = s.deps.Decisions.Counterfactual(ctx, cfReq); err != nil {
			s.writeError(c, err)
			return
		}
	}

	exp, err := s.deps.Explainer.Explain(ctx, run, cf)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (s *Server) listProposals(c *gin.Context) {
	proposals, err := s.deps.Governance.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

func (s *Server) createProposal(c *gin.Context) {
	var req model.ChangeProposalCreate
	if !bindJSON(c, &req) {
		return
	}
	proposal, err := s.deps.Governance.Create(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (s *Server) getProposal(c *gin.Context) {
	proposal, err := s.deps.Governance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (s *Server) updateProposal(c *gin.Context) {
	var req model.ChangeProposalUpdate
	if !bindJSON(c, &req) {
		return
	}
	proposal, err := s.deps.Governance.Apply(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (s *Server) listCohorts(c *gin.Context) {
	cohorts, err := s.deps.Catalog.Cohorts()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cohorts)
}

func (s *Server) listProposedChanges(c *gin.Context) {
	changes, err := s.deps.Catalog.ProposedChanges()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

func (s *Server) studyOptions(c *gin.Context) qa.Options {
	concurrency, _ := strconv.Atoi(c.Query("concurrency"))
	if concurrency <= 0 {
		concurrency = s.cfg.Concurrency.Workers
	}
	return qa.Options{
		InterpretationSetID: c.Query("interpretation_set_id"),
		AssumptionSetID:     c.Query("assumption_set_id"),
		Concurrency:         concurrency,
	}
}

// listStudies runs every cohort against every proposed change
func (s *Server) listStudies(c *gin.Context) {
	cohorts, err := s.deps.Catalog.Cohorts()
	if err != nil {
		s.writeError(c, err)
		return
	}
	changes, err := s.deps.Catalog.ProposedChanges()
	if err != nil {
		s.writeError(c, err)
		return
	}

	opts := s.studyOptions(c)
	results := make([]*model.QAStudyResult, 0, len(cohorts)*len(changes))
	for _, cohort := range cohorts {
		for _, change := range changes {
			study, err := s.deps.QA.Study(c.Request.Context(), cohort.CohortID, change.ProposalID, opts)
			if err != nil {
				s.writeError(c, err)
				return
			}
			results = append(results, study)
		}
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) getStudy(c *gin.Context) {
	study, err := s.deps.QA.Study(c.Request.Context(), c.Param("cohort"), c.Param("proposal"), s.studyOptions(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, study)
}
