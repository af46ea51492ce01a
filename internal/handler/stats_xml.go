package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/card-service/internal/models"
	"github.com/beevik/etree"
)

func wantsXML(r *http.Request) bool {
	if format := r.URL.Query().Get("format"); format != "" {
		return strings.EqualFold(format, "xml")
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/xml") || strings.Contains(accept, "text/xml")
}

// buildStatsXML renders stats as
//
//	<cardStats total=".." used=".." available=".." usageRatePercent="..">
//	  <byPlatform><platform name=".." count=".."/></byPlatform>
//	  <byRecentDate><day date="YYYY-MM-DD" count=".."/></byRecentDate>
//	</cardStats>
func buildStatsXML(stats *models.CardStats) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("cardStats")
	root.CreateAttr("total", strconv.FormatInt(stats.Total, 10))
	root.CreateAttr("used", strconv.FormatInt(stats.Used, 10))
	root.CreateAttr("available", strconv.FormatInt(stats.Available, 10))
	root.CreateAttr("usageRatePercent", strconv.FormatFloat(stats.UsageRatePercent, 'f', 2, 64))

	byPlatform := root.CreateElement("byPlatform")
	for _, pc := range stats.ByPlatform {
		el := byPlatform.CreateElement("platform")
		el.CreateAttr("name", pc.Platform)
		el.CreateAttr("count", strconv.FormatInt(pc.Count, 10))
	}

	byDate := root.CreateElement("byRecentDate")
	for _, dc := range stats.ByRecentDate {
		el := byDate.CreateElement("day")
		el.CreateAttr("date", dc.Date)
		el.CreateAttr("count", strconv.FormatInt(dc.Count, 10))
	}

	doc.Indent(2)
	return doc
}

func writeStatsXML(w http.ResponseWriter, stats *models.CardStats) error {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buildStatsXML(stats).WriteTo(w)
	return err
}
