package handler

import (
	"bytes"
	"errors"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/document"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// parseSeed 没有给出 seed 时随机生成一个，第二个返回值表示调用方是否指定了 seed
func parseSeed(s string) (int64, bool, error) {
	if s == "" {
		return rand.Int63(), false, nil
	}

	seed, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return seed, true, nil
}

// Schedule 读取项目文档并返回一个贪心构造的排程文档，响应格式与请求的 Content-Type 一致
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	format := document.FormatFromContentType(r.Header.Get("Content-Type"))

	query := r.URL.Query()
	strategy := query.Get("strategy")
	if strategy == "" {
		strategy = scheduler.StrategyRandom
	}
	selector, err := scheduler.LookupModeSelector(strategy)
	if err != nil {
		h.documentError(w, r, err)
		return
	}

	seed, seeded, err := parseSeed(query.Get("seed"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "seed 必须是整数")
		return
	}

	project, err := document.LoadProject(r.Body, format)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorResponse(w, r, http.StatusRequestEntityTooLarge, "项目文档过大")
			return
		}
		h.documentError(w, r, err)
		return
	}

	// 只有指定了 seed 的结果才是可复现的，才值得缓存
	var key string
	if seeded {
		fingerprint, err := utils.ProjectFingerprint(project)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		key = scheduleCacheKey(fingerprint, strategy, seed)

		if genotype, ok := h.getCachedGenotype(r.Context(), key); ok {
			w.Header().Set("X-Cache", "HIT")
			h.writeSchedule(w, r, format, &domain.Schedule{Project: project, Genotype: genotype})
			return
		}
	}

	schedule, err := scheduler.NewGreedySchedule(project, rand.New(rand.NewSource(seed)), selector)
	if err != nil {
		h.documentError(w, r, err)
		return
	}

	if seeded {
		h.cacheGenotype(r.Context(), key, schedule.Genotype)
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("X-Seed", strconv.FormatInt(seed, 10))
	h.writeSchedule(w, r, format, schedule)
}

func (h *Handler) writeSchedule(w http.ResponseWriter, r *http.Request, format document.Format, schedule *domain.Schedule) {
	var buf bytes.Buffer
	if err := document.EncodeSchedule(&buf, format, schedule); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logInternalServerError(r, err)
	}
}
