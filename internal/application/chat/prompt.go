package chat

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"clipiq-api/internal/domain/entity"
)

// historyTurnsInPrompt 注入提示词的最近对话轮数
const historyTurnsInPrompt = 6

const ragSystem = `You are a video assistant. Answer the question using ONLY the
transcript evidence below. Every claim must cite the timestamp of its source
line in the form [mm:ss] (or [h:mm:ss]). If the evidence does not contain the
answer, say you cannot find it in the video. Do not invent timestamps.`

const summarySystem = `You are a video assistant. Write a concise summary of the
video based on the transcript excerpts below. Cover the main topics in order,
citing key moments with their [mm:ss] timestamps. Do not invent timestamps.`

const compareSystem = `You are a video assistant. Two videos are loaded. Using
ONLY the evidence below, answer the user's comparison question. Attribute every
claim to its video by name and cite timestamps in the form [mm:ss]. If one
video's evidence does not cover the question, say so explicitly.`

// evidenceBlock 将证据行格式化为可注入提示词的块
// 约束：尽量短，不把 score 等调试信息塞进 Prompt。
func evidenceBlock(title string, evidence []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video: %s\n", title)
	if len(evidence) == 0 {
		b.WriteString("(no matching transcript evidence)\n")
		return b.String()
	}
	for _, line := range evidence {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// historyMessages 将最近几轮对话转换为消息序列
func historyMessages(history []entity.ChatTurn) []*schema.Message {
	if len(history) > historyTurnsInPrompt {
		history = history[len(history)-historyTurnsInPrompt:]
	}
	out := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case entity.RoleUser:
			out = append(out, schema.UserMessage(turn.Content))
		case entity.RoleAssistant:
			out = append(out, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return out
}

// buildRAGMessages 单视频问答提示词
func buildRAGMessages(title string, evidence []string, history []entity.ChatTurn, question string) []*schema.Message {
	msgs := []*schema.Message{schema.SystemMessage(ragSystem)}
	msgs = append(msgs, historyMessages(history)...)
	msgs = append(msgs, schema.UserMessage(fmt.Sprintf(
		"Evidence:\n%s\nQuestion: %s", evidenceBlock(title, evidence), question)))
	return msgs
}

// buildSummaryMessages 单视频摘要提示词
func buildSummaryMessages(title string, sampled []string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(summarySystem),
		schema.UserMessage(fmt.Sprintf(
			"Transcript excerpts:\n%s\nWrite the summary.", evidenceBlock(title, sampled))),
	}
}

// buildCompareMessages 双视频对比提示词
func buildCompareMessages(titleA string, evidenceA []string, titleB string, evidenceB []string, history []entity.ChatTurn, question string) []*schema.Message {
	msgs := []*schema.Message{schema.SystemMessage(compareSystem)}
	msgs = append(msgs, historyMessages(history)...)
	msgs = append(msgs, schema.UserMessage(fmt.Sprintf(
		"Evidence A:\n%s\nEvidence B:\n%s\nQuestion: %s",
		evidenceBlock(titleA, evidenceA), evidenceBlock(titleB, evidenceB), question)))
	return msgs
}
