package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"clipforge/internal/advisor"
	"clipforge/internal/media"
)

func newCapabilitiesCommand(ctx *commandContext) *cobra.Command {
	var width, height, frameRate int

	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Show codec support and bitrate guidance for a geometry",
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := message.NewPrinter(language.English)

			codecRows := make([][]string, 0, len(media.Codecs()))
			for _, codec := range media.Codecs() {
				minRate, maxRate := advisor.BitrateRange(codec, width, height)
				supported := "no"
				if advisor.IsCodecSupported(codec) {
					supported = "yes"
				}
				codecRows = append(codecRows, []string{
					string(codec),
					supported,
					codec.MimeType(),
					string(advisor.RecommendedFormat(codec)),
					printer.Sprintf("%d", minRate),
					printer.Sprintf("%d", maxRate),
				})
			}
			cmd.Println(renderTable(
				[]string{"Codec", "Supported", "MIME type", "Container", "Min bps", "Max bps"},
				codecRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))

			qualityRows := make([][]string, 0, len(media.Qualities()))
			for _, quality := range media.Qualities() {
				presetW, presetH := advisor.PresetResolution(quality)
				qualityRows = append(qualityRows, []string{
					quality.String(),
					printer.Sprintf("%dx%d", presetW, presetH),
					printer.Sprintf("%d", advisor.PresetBitrate(quality)),
					printer.Sprintf("%d", advisor.RecommendedBitrate(width, height, frameRate, quality)),
				})
			}
			cmd.Println(renderTable(
				[]string{"Quality", "Preset resolution", "Preset bps", printer.Sprintf("Recommended bps (%dx%d@%d)", width, height, frameRate)},
				qualityRows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 1920, "Frame width used for recommendations")
	cmd.Flags().IntVar(&height, "height", 1080, "Frame height used for recommendations")
	cmd.Flags().IntVar(&frameRate, "fps", 30, "Frame rate used for recommendations")

	return cmd
}
