package racecard

// meetingText is a two-race card in the layout the signatures describe
const meetingText = `Wettstar Rennprogramm
20.02.2026 - Dortmund
Übersicht der Rennen
1
14:05
2200 m
5.100,00 €
Flach
Preis der Stadt Dortmund
Rennpreis: 5.100 €
1
Box: 4
ML: 4,5
Sunny Boy
4j. br. W (Sea The Stars - Sunny Girl)
Trainer: P. Schiergen
58.5 Besitzer: Stall Ullmann
Züchter: Gestüt Ebbesloh
A. Helfenbein
2025: 7 Starts - 2 Siege - 3 Plätze 12.400 €
2024: 3 Starts - 0 Siege - 1 Platz 1.500 €
28.12 Dortmund 3 57.5 1900 1.200 6,4 A. Helfenbein
15.11 Köln - 58.0 2000 800 12,0 M. Pecheur
2
N
Box: 1
Lucky Star
3j. F S (Adlerflug - Lucky Lady)
Trainer: M. Weiss
56.0 Besitzer: Gestüt Röttgen
Züchter: Gestüt Röttgen
B. Murzabayev
3
Box: 2
ML: 12,0
Night Fever
5j. db. H (Soldier Hollow - Night Queen)
Trainer: H. Blume
60.0 Besitzer: Stall Nizza
Züchter: Stall Nizza
W. Panov
2025: 4 Starts - 1 Sieg - 0 Plätze 3.000 €
10.01 Neuss 1 59.0 1600 2.500 3,2 L. Delozier
2
14:40
1600 m
8.000 €
Sand
Großer Preis von Dortmund
Rennpreis: 8.000 €
1
Box: 3
ML: 2,8
Quick Step
4j. F W (Areion - Quick Dance)
Trainer: A. Wöhler
57.0 Besitzer: Stall Ittlingen
Züchter: Gestüt Schlenderhan
E. Pedroza
2025: 5 Starts - 2 Siege - 2 Plätze 9.000,00 €
2024: 6 Starts - 1 Sieg - 3 Plätze 7.000 €
01.02 Dortmund 2 57.0 1600 3.000 4,1 E. Pedroza
`
