// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bvk/tcbot/api"
	"github.com/bvk/tcbot/config"
	"github.com/bvk/tcbot/gobs"
	"github.com/bvk/tcbot/pair"
	"github.com/bvk/tcbot/timerange"
	"github.com/bvk/tcbot/tradelog"
)

func (s *Server) doStart(ctx context.Context, req *api.StartRequest) (*api.StartResponse, error) {
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return &api.StartResponse{Running: s.sup.IsRunning()}, nil
}

func (s *Server) doStop(ctx context.Context, req *api.StopRequest) (*api.StopResponse, error) {
	if err := s.Stop(ctx); err != nil {
		return nil, err
	}
	return &api.StopResponse{Running: s.sup.IsRunning()}, nil
}

func (s *Server) doStatus(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {
	st := s.sup.Status()
	resp := &api.StatusResponse{
		Exchange:      s.ex.ExchangeName(),
		Pair:          s.ex.Pair().String(),
		Running:       st.Running,
		Error:         st.Err,
		LastTradeTime: st.LastTradeTime,
	}
	for _, t := range st.Traders {
		resp.Traders = append(resp.Traders, &api.TraderStatus{
			Direction:   t.Direction.String(),
			Started:     t.Started,
			HoldsTop:    t.HoldsTop,
			LastRate:    t.Gate.LastRate,
			CurrentRate: t.Gate.CurrentRate,
			SplitTrades: t.Config.SplitTrades,
			TradeAll:    t.Config.TradeAll,
			Amount:      t.Config.Amount,
			Current:     t.Current,
		})
	}
	return resp, nil
}

func configResponse(d pair.Direction, c config.Direction) *api.ConfigSetResponse {
	return &api.ConfigSetResponse{
		Direction:   d.String(),
		SplitTrades: c.SplitTrades,
		TradeAll:    c.TradeAll,
		Amount:      c.Amount,
	}
}

func (s *Server) doConfigSet(ctx context.Context, req *api.ConfigSetRequest) (*api.ConfigSetResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	d, err := pair.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	if err := s.cfg.Set(d, req.Key, req.Value); err != nil {
		return nil, err
	}
	return configResponse(d, s.cfg.Get(d)), nil
}

func (s *Server) doTrades(ctx context.Context, req *api.TradesRequest) (*api.TradesResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	period, err := timerange.Parse(req.Period, time.Now())
	if err != nil {
		return nil, err
	}
	records, err := tradelog.ListDB(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if !period.IsZero() {
		records = slices.DeleteFunc(records, func(r *gobs.TradeRecord) bool {
			return !period.InRange(r.CreateTime)
		})
	}
	if len(req.Direction) != 0 {
		records = slices.DeleteFunc(records, func(r *gobs.TradeRecord) bool {
			return !strings.EqualFold(r.Direction, req.Direction)
		})
	}

	resp := new(api.TradesResponse)
	sums := tradelog.Summarize(records)
	for _, d := range pair.Directions {
		if sum, ok := sums[d.String()]; ok {
			resp.Summaries = append(resp.Summaries, &api.TradeSummary{
				Direction:    sum.Direction,
				NumTrades:    sum.NumTrades,
				NumOpen:      sum.NumOpen,
				NumCancelled: sum.NumCancelled,
				Given:        sum.Given,
				Received:     sum.Received,
				AvgRate:      sum.AvgRate(),
			})
		}
	}

	if req.Limit > 0 && len(records) > req.Limit {
		records = records[len(records)-req.Limit:]
	}
	resp.Trades = records
	return resp, nil
}
