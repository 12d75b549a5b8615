package survey

// AIAttitude is the canonical 15-row catalog served by the API.
var AIAttitude = MustCatalog(
	"ai-attitude-15",
	"※ 다음은 AI에 대한 현재 자신의 태도를 알아보는 문항입니다.",
	[]Row{
		{ID: "q1", Text: "1. AI와 관련된 이슈에 대한 관심이 매우 높다."},
		{ID: "q2", Text: "2. AI를 배우는 것은 일상생활을 하는데 많은 도움을 줄 것이다."},
		{ID: "q3", Text: "3. AI 도구를 활용해 공부하거나 활동하는 것이 즐겁다."},
		{ID: "q4", Text: "4. AI가 제시한 답변을 스스로 검토하고 판단할 수 있다."},
		{ID: "q5", Text: "5. AI를 다룰 줄 아는 것은 내게 더 많은 직업 선택의 기회를 줄 것이다."},
		{ID: "q6", Text: "6. AI를 이해하는 것은 미래 사회에 적응하기 위해 매우 중요하다."},
		{ID: "q7", Text: "7. AI가 만든 결과물에 대한 신뢰도가 높은 편이다."},
		{ID: "q8", Text: "8. 새로운 AI 서비스가 나오면 먼저 사용해 보는 편이다."},
		{ID: "q9", Text: "9. AI는 전문가만이 이해할 수 있는 기술이라고 생각하지 않는다."},
		{ID: "q10", Text: "10. 과제나 업무에 AI를 활용하는 나만의 방법이 있다."},
		{ID: "q11", Text: "11. AI 활용 시 개인정보와 저작권 문제를 고려한다."},
		{ID: "q12", Text: "12. AI의 한계와 오류 가능성을 알고 있다."},
		{ID: "q13", Text: "13. AI와 협업하면 더 창의적인 결과를 낼 수 있다고 생각한다."},
		{ID: "q14", Text: "14. AI 관련 강의나 자료를 스스로 찾아본 경험이 있다."},
		{ID: "q15", Text: "15. 앞으로 AI를 더 깊이 있게 배우고 싶다."},
	},
	[]Column{
		{Value: "1", Label: "전혀 그렇지 않다", Display: "전혀\n그렇지 않다", Points: 1},
		{Value: "2", Label: "그렇지 않은 편이다", Display: "그렇지\n않은\n편이다", Points: 2},
		{Value: "3", Label: "그런 편이다", Display: "그런\n편이다", Points: 3},
		{Value: "4", Label: "매우 그렇다", Display: "매우\n그렇다", Points: 4},
	},
	[]Band{
		{
			Grade:       GradeHigh,
			Min:         50,
			Title:       "AI 동행자",
			Description: "당신은 AI를 일상과 학습의 든든한 동반자로 활용하고 있습니다! AI의 가능성과 한계를 함께 이해하고 있으며, 새로운 도구를 배우는 데 큰 즐거움을 느끼고 있습니다. 이번 강의를 통해 그 역량을 더욱 깊이 있게 발전시켜 보세요.",
		},
		{
			Grade:       GradeMid,
			Min:         40,
			Title:       "AI 탐색자",
			Description: "당신은 AI에 대해 적당한 관심과 호기심을 가지고 있습니다. 아직 깊이 활용하진 않지만, AI가 일상과 연결되어 있다는 것을 느끼고 있죠. 이번 강의가 AI와 더 가까워지는 좋은 계기가 될 것입니다.",
		},
		{
			Grade:       GradeLow,
			Min:         0,
			Title:       "AI 관찰자",
			Description: "AI가 아직은 조금 낯설고 어렵게 느껴질 수 있습니다. 하지만 걱정 마세요! 누구나 처음은 있는 법이니까요. 이번 강의를 통해 AI가 생각보다 재미있고 우리 생활에 밀접하다는 것을 발견하게 될 거예요.",
		},
	},
	[]Course{
		{ID: "ai-literacy", Name: "AI 리터러시"},
		{ID: "data-science-intro", Name: "데이터 과학 입문"},
		{ID: "science-and-society", Name: "과학기술과 사회"},
	},
)
