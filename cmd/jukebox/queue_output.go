package main

import (
	"fmt"
	"io"
	"strconv"

	"jukebox/internal/api"
)

func printQueueView(out io.Writer, view api.QueueView) {
	if view.ProgramName != "" {
		fmt.Fprintln(out, view.ProgramName)
		fmt.Fprintln(out)
	}

	if view.NowPlaying != nil {
		fmt.Fprintf(out, "Now playing: %s (%s)\n", view.NowPlaying.Song.DisplayName, requesterLabel(*view.NowPlaying))
	} else {
		fmt.Fprintln(out, "Now playing: nothing")
	}
	fmt.Fprintln(out)

	upcoming := append(append([]api.SongRequest{}, view.UpcomingRequested...), view.UpcomingRandom...)
	if len(upcoming) == 0 {
		fmt.Fprintln(out, "Upcoming: queue is empty")
	} else {
		fmt.Fprintln(out, "Upcoming")
		rows := make([][]string, 0, len(upcoming))
		for i, req := range upcoming {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				strconv.FormatInt(req.SongID, 10),
				req.Song.DisplayName,
				requesterLabel(req),
			})
		}
		fmt.Fprint(out, renderTable([]string{"#", "Song ID", "Song", "Requested By"}, rows,
			[]columnAlignment{alignRight, alignRight}))
	}

	if len(view.RecentlyPlayed) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Recently played")
	rows := make([][]string, 0, len(view.RecentlyPlayed))
	for _, req := range view.RecentlyPlayed {
		rows = append(rows, []string{
			formatTimestamp(req.PlayedAt),
			req.Song.DisplayName,
			requesterLabel(req),
			playResult(req),
		})
	}
	fmt.Fprint(out, renderTable([]string{"Played", "Song", "Requested By", "Result"}, rows, nil))
}

func songRows(songs []api.Song) [][]string {
	rows := make([][]string, 0, len(songs))
	for _, song := range songs {
		rows = append(rows, []string{
			strconv.FormatInt(song.ID, 10),
			song.Artist,
			song.Title,
			song.Album,
			song.Genre,
		})
	}
	return rows
}

func requesterLabel(req api.SongRequest) string {
	if req.Filler || req.Requester == "" {
		return "(random)"
	}
	return req.Requester
}

func playResult(req api.SongRequest) string {
	if req.Failure == nil {
		return "played"
	}
	if req.Failure.Kind != "" {
		return "failed (" + req.Failure.Kind + "): " + req.Failure.Reason
	}
	return "failed: " + req.Failure.Reason
}

func formatTimestamp(value string) string {
	parsed := api.ParseTime(value)
	if parsed.IsZero() {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}
