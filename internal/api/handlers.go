package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lyprox-dashboard-server/internal/domain"
	"github.com/lyprox-dashboard-server/internal/service"
)

// DashboardRequest is the JSON body of a dashboard query. Every field is
// optional; omitted fields fall back to the default query. Ternary fields
// use the encoding 1 (positive), 0 (unknown), -1 (negative). Subsites holds
// subsite group names, not ICD codes. Ipsi and Contra map level names to
// the desired consensus involvement.
type DashboardRequest struct {
	Modalities      []string       `json:"modalities"`
	ModalityCombine string         `json:"modality_combine"`
	NicotineAbuse   *int           `json:"nicotine_abuse"`
	HPVStatus       *int           `json:"hpv_status"`
	NeckDissection  *int           `json:"neck_dissection"`
	NStatus         *int           `json:"n_status"`
	Institutions    []int64        `json:"institutions"`
	Subsites        []string       `json:"subsites"`
	TStages         []int          `json:"t_stages"`
	Central         *int           `json:"central"`
	Extension       *int           `json:"extension"`
	Ipsi            map[string]int `json:"ipsi"`
	Contra          map[string]int `json:"contra"`
}

// toQuery resolves the request against the default query and translates the
// form encoding into domain values.
func (r *DashboardRequest) toQuery() (service.Query, error) {
	q := service.DefaultQuery()

	if r.Modalities != nil {
		for _, m := range r.Modalities {
			if _, ok := domain.ModalityByCode(m); !ok {
				return q, domain.NewInvalidConfiguration("modalities", fmt.Sprintf("unknown modality %q", m))
			}
		}
		q.Modalities = r.Modalities
	}

	if r.ModalityCombine != "" {
		q.Combine = service.CombinePolicy(r.ModalityCombine)
	}

	var err error
	if q.NicotineAbuse, err = ternaryField("nicotine_abuse", r.NicotineAbuse); err != nil {
		return q, err
	}
	if q.HPVStatus, err = ternaryField("hpv_status", r.HPVStatus); err != nil {
		return q, err
	}
	if q.NeckDissection, err = ternaryField("neck_dissection", r.NeckDissection); err != nil {
		return q, err
	}
	if q.NStatus, err = ternaryField("n_status", r.NStatus); err != nil {
		return q, err
	}
	if q.Central, err = ternaryField("central", r.Central); err != nil {
		return q, err
	}
	if q.Extension, err = ternaryField("extension", r.Extension); err != nil {
		return q, err
	}

	q.Institutions = r.Institutions

	if r.Subsites != nil {
		codes, err := domain.SubsiteCodesFor(r.Subsites)
		if err != nil {
			return q, err
		}
		q.Subsites = codes
	}

	if r.TStages != nil {
		for _, t := range r.TStages {
			if t < 1 || t > 4 {
				return q, domain.NewInvalidConfiguration("t_stages", fmt.Sprintf("T-stage %d out of range", t))
			}
		}
		q.TStages = r.TStages
	}

	sides := map[domain.Side]map[string]int{domain.Ipsi: r.Ipsi, domain.Contra: r.Contra}
	for side, levels := range sides {
		for lnl, v := range levels {
			if _, ok := q.Pattern[side][lnl]; !ok {
				return q, domain.NewInvalidConfiguration(string(side), fmt.Sprintf("unknown lymph node level %q", lnl))
			}
			t, err := domain.TernaryFromForm(v)
			if err != nil {
				return q, domain.NewInvalidConfiguration(string(side), err.Error())
			}
			q.Pattern[side][lnl] = t
		}
	}
	q.Pattern.InferSuperlevels()

	return q, nil
}

func ternaryField(field string, v *int) (domain.Ternary, error) {
	if v == nil {
		return domain.Unknown, nil
	}
	t, err := domain.TernaryFromForm(*v)
	if err != nil {
		return domain.Unknown, domain.NewInvalidConfiguration(field, err.Error())
	}
	return t, nil
}

// handleDashboardGET serves a dashboard query given as URL parameters.
// Level targets are passed as side_level keys, e.g. ipsi_II=1.
func (s *Server) handleDashboardGET(c *gin.Context) {
	req, err := requestFromParams(c)
	if err != nil {
		s.abortInvalid(c, err)
		return
	}
	s.serveDashboard(c, req, false)
}

// handleDashboardPOST serves a dashboard query given as a JSON body. The
// response carries a "type" marker so the frontend can dispatch on it.
func (s *Server) handleDashboardPOST(c *gin.Context) {
	var req DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortInvalid(c, err)
		return
	}
	s.serveDashboard(c, &req, true)
}

func (s *Server) serveDashboard(c *gin.Context, req *DashboardRequest, typed bool) {
	q, err := req.toQuery()
	if err != nil {
		s.abortInvalid(c, err)
		return
	}

	key := canonicalKey(q)
	stats, ok := s.cache.Get(key)
	if !ok {
		cohort, combined, err := s.query.ExecuteQuery(c.Request.Context(), q)
		if err != nil {
			s.abortQueryError(c, err)
			return
		}

		result, err := s.query.ComputeStatistics(c.Request.Context(), cohort, combined)
		if err != nil {
			s.abortQueryError(c, err)
			return
		}

		stats = result.ToMap()
		s.cache.Add(key, stats)
	}

	if typed {
		typedStats := make(map[string]any, len(stats)+1)
		for k, v := range stats {
			typedStats[k] = v
		}
		typedStats["type"] = "stats"
		c.JSON(http.StatusOK, typedStats)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleModalities serves the modality catalog and the default selection.
func (s *Server) handleModalities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"modalities": domain.Modalities,
		"default":    domain.DefaultModalities,
	})
}

// handleInstitutions serves the institution catalog.
func (s *Server) handleInstitutions(c *gin.Context) {
	institutions, err := s.query.ListInstitutions(c.Request.Context())
	if err != nil {
		s.abortQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"institutions": institutions})
}

// requestFromParams translates URL query parameters into a DashboardRequest.
func requestFromParams(c *gin.Context) (*DashboardRequest, error) {
	req := &DashboardRequest{}
	params := c.Request.URL.Query()

	if vals, ok := params["modalities"]; ok {
		req.Modalities = vals
	}
	req.ModalityCombine = c.Query("modality_combine")

	ternaries := map[string]**int{
		"nicotine_abuse":  &req.NicotineAbuse,
		"hpv_status":      &req.HPVStatus,
		"neck_dissection": &req.NeckDissection,
		"n_status":        &req.NStatus,
		"central":         &req.Central,
		"extension":       &req.Extension,
	}
	for name, dest := range ternaries {
		if raw := c.Query(name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return nil, domain.NewInvalidConfiguration(name, fmt.Sprintf("expected an integer, got %q", raw))
			}
			*dest = &v
		}
	}

	if vals, ok := params["institutions"]; ok {
		for _, raw := range vals {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, domain.NewInvalidConfiguration("institutions", fmt.Sprintf("expected an integer ID, got %q", raw))
			}
			req.Institutions = append(req.Institutions, id)
		}
		if req.Institutions == nil {
			req.Institutions = []int64{}
		}
	}

	if vals, ok := params["subsites"]; ok {
		req.Subsites = vals
	}

	if vals, ok := params["t_stages"]; ok {
		req.TStages = []int{}
		for _, raw := range vals {
			t, err := strconv.Atoi(raw)
			if err != nil {
				return nil, domain.NewInvalidConfiguration("t_stages", fmt.Sprintf("expected an integer, got %q", raw))
			}
			req.TStages = append(req.TStages, t)
		}
	}

	for _, side := range domain.Sides {
		levels := make(map[string]int)
		for _, lnl := range domain.LNLs {
			name := fmt.Sprintf("%s_%s", side, lnl)
			raw := c.Query(name)
			if raw == "" {
				continue
			}
			v, err := strconv.Atoi(raw)
			if err != nil {
				return nil, domain.NewInvalidConfiguration(name, fmt.Sprintf("expected an integer, got %q", raw))
			}
			levels[lnl] = v
		}
		if len(levels) > 0 {
			if side == domain.Ipsi {
				req.Ipsi = levels
			} else {
				req.Contra = levels
			}
		}
	}

	return req, nil
}

// canonicalKey derives a deterministic cache key from a resolved query.
// Slices are sorted so that equivalent queries share an entry.
func canonicalKey(q service.Query) string {
	var b strings.Builder

	mods := append([]string(nil), q.Modalities...)
	sort.Strings(mods)
	fmt.Fprintf(&b, "mod=%s;combine=%s;", strings.Join(mods, ","), q.Combine)

	fmt.Fprintf(&b, "nic=%d;hpv=%d;nd=%d;ns=%d;cen=%d;ext=%d;",
		q.NicotineAbuse, q.HPVStatus, q.NeckDissection, q.NStatus, q.Central, q.Extension)

	if q.Institutions != nil {
		inst := append([]int64(nil), q.Institutions...)
		sort.Slice(inst, func(i, j int) bool { return inst[i] < inst[j] })
		fmt.Fprintf(&b, "inst=%v;", inst)
	}

	subs := append([]string(nil), q.Subsites...)
	sort.Strings(subs)
	fmt.Fprintf(&b, "sub=%s;", strings.Join(subs, ","))

	stages := append([]int(nil), q.TStages...)
	sort.Ints(stages)
	fmt.Fprintf(&b, "t=%v;", stages)

	for _, side := range domain.Sides {
		for _, lnl := range domain.LNLs {
			fmt.Fprintf(&b, "%s_%s=%d;", side, lnl, q.Pattern[side][lnl])
		}
	}

	return b.String()
}

func (s *Server) abortInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeInvalidInput,
		"Invalid dashboard query",
		err.Error(),
		c.GetString("request_id"),
	))
}

func (s *Server) abortQueryError(c *gin.Context, err error) {
	var invalid *domain.InvalidConfigurationError
	if errors.As(err, &invalid) {
		s.abortInvalid(c, err)
		return
	}

	s.log.WithError(err).Error("Dashboard query failed")
	c.JSON(http.StatusInternalServerError, domain.NewAPIError(
		domain.ErrCodeQueryFailed,
		"Dashboard query failed",
		err.Error(),
		c.GetString("request_id"),
	))
}
