package webapp

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/ssoonwee/bonafide/pkg/encoding/fixedn"
	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/views"
	"go.uber.org/zap"
)

type (
	listRequest struct {
		URI   string `json:"uri"`
		Price string `json:"price"`
	}
	priceRequest struct {
		Price string `json:"price"`
	}
	verifierRequest struct {
		Address string `json:"address"`
	}

	// outcomeResponse is the result of a state-changing request, item
	// fields are present if the operation refers to some item and its
	// state was read after confirmation.
	outcomeResponse struct {
		Hash    common.Hash      `json:"hash"`
		Block   uint64           `json:"block"`
		TokenID *big.Int         `json:"tokenId,omitempty"`
		Status  *market.Status   `json:"status,omitempty"`
		Seller  *common.Address  `json:"seller,omitempty"`
		Owner   *common.Address  `json:"owner,omitempty"`
		Price   *big.Int         `json:"price,omitempty"`
		Error   *views.ErrorView `json:"error,omitempty"`
	}
)

func (s *Server) routes() {
	r := s.engine
	r.GET("/assets", s.handleList(views.ForSale))
	r.GET("/assets/all", s.handleList(views.Everything))
	r.GET("/assets/mine", s.handleList(views.MyListings))
	r.GET("/assets/:id", s.handleDetail)
	r.POST("/assets", s.handleCreate)
	r.POST("/assets/:id/buy", s.handleDetailAction(func(c *gin.Context, d *views.AssetDetail) (*lifecycle.Outcome, error) {
		return d.Buy(c.Request.Context())
	}))
	r.POST("/assets/:id/resell", s.handleDetailAction(func(c *gin.Context, d *views.AssetDetail) (*lifecycle.Outcome, error) {
		var req priceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, fmt.Errorf("%w: invalid request body: %w", market.ErrInvalidArgument, err)
		}
		price, err := s.parsePrice(req.Price)
		if err != nil {
			return nil, err
		}
		return d.Resell(c.Request.Context(), price)
	}))
	r.POST("/assets/:id/toggle", s.handleDetailAction(func(c *gin.Context, d *views.AssetDetail) (*lifecycle.Outcome, error) {
		return d.Toggle(c.Request.Context())
	}))
	r.GET("/verifier/pending", s.handlePending)
	r.POST("/verifier/approve/:id", s.handleVerification(true))
	r.POST("/verifier/reject/:id", s.handleVerification(false))
	r.GET("/fee", s.handleFee)
	r.POST("/verifiers", s.handleAddVerifier)
	r.DELETE("/verifiers/:address", s.handleRemoveVerifier)
}

func (s *Server) handleList(src views.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := views.NewClientList(s.ops, src)
		err := l.Load(c.Request.Context())
		c.JSON(statusOf(err), l.View())
	}
}

func (s *Server) handlePending(c *gin.Context) {
	q := views.NewVerifierQueue(s.ops)
	err := q.Load(c.Request.Context())
	c.JSON(statusOf(err), q.View())
}

func (s *Server) handleDetail(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	// Metadata is always resolved from the contract's tokenURI, the "uri"
	// query is not trusted by the server.
	d := views.NewAssetDetail(s.ops, id, "")
	err = d.Load(c.Request.Context())
	c.JSON(statusOf(err), d.View())
}

func (s *Server) handleFee(c *gin.Context) {
	a := views.NewAdmin(s.ops, s.decimals)
	err := a.Load(c.Request.Context())
	c.JSON(statusOf(err), a.View())
}

func (s *Server) handleCreate(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid request body: %w", market.ErrInvalidArgument, err))
		return
	}
	price, err := s.parsePrice(req.Price)
	if err != nil {
		s.fail(c, err)
		return
	}
	o, err := s.ops.ListAsset(c.Request.Context(), req.URI, price)
	s.respond(c, o, err)
}

// handleDetailAction loads the asset page first, so that the action is
// checked against the current state the way a viewer would see it.
func (s *Server) handleDetailAction(f func(*gin.Context, *views.AssetDetail) (*lifecycle.Outcome, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c.Param("id"))
		if err != nil {
			s.fail(c, err)
			return
		}
		d := views.NewAssetDetail(s.ops, id, "")
		if err := d.Load(c.Request.Context()); err != nil {
			s.fail(c, err)
			return
		}
		o, err := f(c, d)
		s.respond(c, o, err)
	}
}

func (s *Server) handleVerification(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c.Param("id"))
		if err != nil {
			s.fail(c, err)
			return
		}
		q := views.NewVerifierQueue(s.ops)
		var o *lifecycle.Outcome
		if approve {
			o, err = q.Approve(c.Request.Context(), id)
		} else {
			o, err = q.Reject(c.Request.Context(), id)
		}
		s.respond(c, o, err)
	}
}

func (s *Server) handleAddVerifier(c *gin.Context) {
	var req verifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid request body: %w", market.ErrInvalidArgument, err))
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		s.fail(c, err)
		return
	}
	o, err := views.NewAdmin(s.ops, s.decimals).AddVerifier(c.Request.Context(), addr)
	s.respond(c, o, err)
}

func (s *Server) handleRemoveVerifier(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}
	o, err := views.NewAdmin(s.ops, s.decimals).RemoveVerifier(c.Request.Context(), addr)
	s.respond(c, o, err)
}

// respond writes the outcome of the operation. The outcome of a confirmed
// transaction is written even if the operation failed afterwards.
func (s *Server) respond(c *gin.Context, o *lifecycle.Outcome, err error) {
	if o == nil || o.Receipt == nil {
		s.fail(c, err)
		return
	}
	resp := outcomeResponse{
		Hash:  o.Receipt.Hash,
		Block: o.Receipt.BlockNumber,
		Error: views.NewErrorView(err),
	}
	if o.TokenID != nil {
		resp.TokenID = o.TokenID
		if o.Price != nil {
			resp.Status = &o.Status
			resp.Seller = &o.Seller
			resp.Owner = &o.Owner
			resp.Price = o.Price
		}
	}
	c.JSON(statusOf(err), resp)
}

func (s *Server) fail(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("no result")
	}
	s.log.Debug("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(statusOf(err), gin.H{"error": views.NewErrorView(err)})
}

func (s *Server) parsePrice(v string) (*big.Int, error) {
	p, err := fixedn.FromString(v, s.decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q: %w", market.ErrInvalidArgument, v, err)
	}
	return p, nil
}

func parseID(v string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(v, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("%w: invalid token id %q", market.ErrInvalidArgument, v)
	}
	return id, nil
}

func parseAddress(v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", market.ErrInvalidArgument, v)
	}
	return common.HexToAddress(v), nil
}

// statusOf maps the error to HTTP status code.
func statusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, market.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, market.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, market.ErrRead), errors.Is(err, market.ErrTransaction), errors.Is(err, market.ErrPostcondition):
		return http.StatusBadGateway
	case errors.Is(err, market.ErrData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
